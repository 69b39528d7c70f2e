package loki

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}

type receiver struct {
	mu       sync.Mutex
	requests []pushRequest
	tenants  []string
	failures int32
}

// handler answers 503 for the first failures requests.
func (r *receiver) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if atomic.AddInt32(&r.failures, -1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		gz, err := gzip.NewReader(req.Body)
		require.NoError(t, err)

		var push pushRequest
		require.NoError(t, json.NewDecoder(gz).Decode(&push))

		r.mu.Lock()
		r.requests = append(r.requests, push)
		r.tenants = append(r.tenants, req.Header.Get(tenantHeader))
		r.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func Test_New_ShouldValidateAndDefault(t *testing.T) {
	assert := assert.New(t)

	_, err := New(context.Background(), Config{}, nopLogger{})
	assert.Error(err)

	_, err = New(context.Background(), Config{URL: "not a url"}, nopLogger{})
	assert.Error(err)

	pusher, err := New(context.Background(), Config{URL: "http://localhost:3100/loki/api/v1/push"}, nopLogger{})
	require.NoError(t, err)
	defer pusher.Stop()

	assert.Equal(500, pusher.cfg.BatchSize)
	assert.Equal(5*time.Second, pusher.cfg.FlushInterval)
	assert.Equal(map[string]string{}, pusher.cfg.Labels)
}

func Test_BuildRequest_ShouldGroupStreamsByLevel(t *testing.T) {
	assert := assert.New(t)
	at := time.Unix(1700000000, 0)

	req := buildRequest(map[string]string{"app": "job-finder"}, []Entry{
		{Time: at, Level: "info", Message: "scheduler pass queued 3 sources"},
		{Time: at, Level: "error", Message: "scrape failed"},
		{Time: at.Add(time.Second), Level: "info", Message: "match saved"},
	})

	require.Len(t, req.Streams, 2)
	assert.Equal(map[string]string{"app": "job-finder", "level": "error"}, req.Streams[0].Stream)
	assert.Equal("info", req.Streams[1].Stream["level"])
	require.Len(t, req.Streams[1].Values, 2)
	assert.Equal("1700000001000000000", req.Streams[1].Values[1][0])
}

func Test_Pusher_Stop_ShouldFlushBatchAfterRetry(t *testing.T) {
	assert := assert.New(t)
	recv := &receiver{failures: 1}
	server := httptest.NewServer(recv.handler(t))
	defer server.Close()

	pusher, err := New(context.Background(), Config{
		URL:           server.URL,
		TenantID:      "team-a",
		FlushInterval: time.Hour,
		RetryDelay:    time.Millisecond,
		Labels:        map[string]string{"app": "job-finder"},
	}, nopLogger{})
	require.NoError(t, err)

	require.NoError(t, pusher.Push(Entry{Level: "error", Message: "scrape failed",
		Fields: map[string]string{"error_type": "scrape"}}))
	pusher.Stop()
	pusher.Stop()

	assert.ErrorIs(pusher.Push(Entry{Message: "late"}), ErrStopped)

	recv.mu.Lock()
	defer recv.mu.Unlock()
	require.Len(t, recv.requests, 1)
	assert.Equal([]string{"team-a"}, recv.tenants)

	values := recv.requests[0].Streams[0].Values
	require.Len(t, values, 1)

	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(values[0][1]), &entry))
	assert.Equal("scrape failed", entry.Message)
	assert.Equal("scrape", entry.Fields["error_type"])
}
