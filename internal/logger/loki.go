package logger

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/maxaizer/job-finder/pkg/loki"
	log "github.com/sirupsen/logrus"
)

const lokiSourceField = "source"

// pusherErrorLogger reports pusher failures through logrus. The entries are
// marked so the hook never ships its own failures back to Loki.
type pusherErrorLogger struct{}

func (pusherErrorLogger) Error(msg string, args ...any) {
	log.WithFields(log.Fields{lokiSourceField: "loki", "details": fmt.Sprint(args...)}).Error(msg)
}

type lokiHook struct {
	pusher *loki.Pusher
	levels []log.Level
}

func newLokiHook(pusher *loki.Pusher, minLevel log.Level) *lokiHook {
	// logrus levels grow with verbosity, so everything up to minLevel is shipped.
	return &lokiHook{pusher: pusher, levels: log.AllLevels[:minLevel+1]}
}

func (h *lokiHook) Levels() []log.Level {
	return h.levels
}

func (h *lokiHook) Fire(entry *log.Entry) error {
	if entry.Data[lokiSourceField] == "loki" {
		return nil
	}

	e := loki.Entry{
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Message: entry.Message,
	}
	if entry.HasCaller() {
		e.Caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.Function), entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		e.Fields = make(map[string]string, len(entry.Data))
		for k, v := range entry.Data {
			e.Fields[k] = fmt.Sprint(v)
		}
	}
	return h.pusher.Push(e)
}

func addLokiHook(ctx context.Context, cfg loki.Config, minLevel log.Level) error {
	pusher, err := loki.New(ctx, cfg, pusherErrorLogger{})
	if err != nil {
		return err
	}
	lokiPusher = pusher
	log.AddHook(newLokiHook(pusher, minLevel))
	log.Infof("shipping logs to loki at %s", cfg.URL)
	return nil
}
