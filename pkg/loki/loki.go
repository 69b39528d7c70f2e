// Package loki ships log entries to a Grafana Loki push endpoint in gzip
// compressed batches, one stream per log level.
package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	tenantHeader = "X-Scope-OrgID"
	levelLabel   = "level"
	maxAttempts  = 3
)

// ErrStopped is returned by Push after Stop.
var ErrStopped = errors.New("loki pusher is stopped")

type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {
	// URL of the push endpoint, e.g. https://logs.example.net/loki/api/v1/push
	URL string `validate:"required,url"`
	// TenantID is sent as X-Scope-OrgID when set.
	TenantID string
	Username string
	Password string

	BatchSize     int           `validate:"gte=1"`
	FlushInterval time.Duration `validate:"gt=0"`
	RetryDelay    time.Duration `validate:"gte=0"`
	Timeout       time.Duration `validate:"gt=0"`

	// Labels are attached to every stream next to the level label.
	Labels map[string]string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

// Entry is one log line. Time defaults to the moment of Push.
type Entry struct {
	Time    time.Time         `json:"-"`
	Level   string            `json:"level"`
	Message string            `json:"msg"`
	Caller  string            `json:"caller,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("loki answered %d: %s", e.StatusCode, e.Body)
}

func (e *statusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Pusher collects entries from any goroutine and sends them from a single
// background loop.
type Pusher struct {
	cfg     Config
	client  *http.Client
	logger  Logger
	ctx     context.Context
	cancel  context.CancelFunc
	entries chan Entry
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	pending []Entry
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(chan Entry, cfg.BatchSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		pending: make([]Entry, 0, cfg.BatchSize),
	}

	go p.run()
	return p, nil
}

// Push queues an entry for the next batch. It blocks while the buffer is full.
func (p *Pusher) Push(e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	select {
	case <-p.quit:
		return ErrStopped
	default:
	}

	select {
	case <-p.quit:
		return ErrStopped
	case <-p.ctx.Done():
		return ErrStopped
	case p.entries <- e:
		return nil
	}
}

// Stop sends what is buffered and stops the loop. Safe to call more than once.
func (p *Pusher) Stop() {
	p.once.Do(func() {
		close(p.quit)
		<-p.done
		p.cancel()
	})
}

func (p *Pusher) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.drain()
			return
		case <-p.quit:
			p.drain()
			return
		case e := <-p.entries:
			p.pending = append(p.pending, e)
			if len(p.pending) >= p.cfg.BatchSize {
				p.flush()
			}
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Pusher) drain() {
	for {
		select {
		case e := <-p.entries:
			p.pending = append(p.pending, e)
		default:
			p.flush()
			return
		}
	}
}

func (p *Pusher) flush() {
	if len(p.pending) == 0 {
		return
	}
	if err := p.send(buildRequest(p.cfg.Labels, p.pending)); err != nil {
		p.logger.Error("failed to send logs", "entries", len(p.pending), "error", err)
	}
	p.pending = p.pending[:0]
}

// buildRequest groups entries into one stream per level, ordered by level.
func buildRequest(labels map[string]string, entries []Entry) pushRequest {
	byLevel := lo.GroupBy(entries, func(e Entry) string { return e.Level })

	levels := lo.Keys(byLevel)
	sort.Strings(levels)

	req := pushRequest{Streams: make([]stream, 0, len(levels))}
	for _, level := range levels {
		streamLabels := lo.Assign(labels, map[string]string{levelLabel: level})
		values := lo.FilterMap(byLevel[level], func(e Entry, _ int) ([2]string, bool) {
			line, err := json.Marshal(e)
			if err != nil {
				return [2]string{}, false
			}
			return [2]string{strconv.FormatInt(e.Time.UnixNano(), 10), string(line)}, true
		})
		req.Streams = append(req.Streams, stream{Stream: streamLabels, Values: values})
	}
	return req
}

func (p *Pusher) send(req pushRequest) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(req); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	body := buf.Bytes()

	var lastErr error
	_, _, _ = lo.AttemptWhileWithDelay(maxAttempts, p.cfg.RetryDelay, func(_ int, _ time.Duration) (error, bool) {
		lastErr = p.post(body)
		var statusErr *statusError
		if errors.As(lastErr, &statusErr) {
			return lastErr, statusErr.retryable()
		}
		return lastErr, lastErr != nil
	})
	return lastErr
}

func (p *Pusher) post(body []byte) error {
	// The final batch is sent after the parent context may already be done.
	req, err := http.NewRequestWithContext(context.WithoutCancel(p.ctx), http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.cfg.TenantID != "" {
		req.Header.Set(tenantHeader, p.cfg.TenantID)
	}
	if p.cfg.Username != "" && p.cfg.Password != "" {
		req.SetBasicAuth(p.cfg.Username, p.cfg.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
