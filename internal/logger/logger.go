package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/maxaizer/job-finder/internal/config"
	"github.com/maxaizer/job-finder/internal/metrics"
	"github.com/maxaizer/job-finder/pkg/loki"
	log "github.com/sirupsen/logrus"
)

var (
	logFile    *os.File
	lokiPusher *loki.Pusher
)

func Setup(cfg config.LoggerConfig) {

	logDir := filepath.Dir(cfg.OutputFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	var err error
	logFile, err = os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)

	customFormatter := &log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	}
	log.SetFormatter(customFormatter)
	log.SetLevel(levelOf(cfg.LogLevel))
	log.AddHook(newPrometheusHook(metrics.ErrorsCounter))

	if cfg.LokiURL != "" {
		lokiCfg := loki.Config{
			URL:      cfg.LokiURL,
			TenantID: cfg.LokiTenant,
			Username: cfg.LokiUser,
			Password: cfg.LokiPassword,
			Labels:   map[string]string{"app": cfg.AppName},
		}
		if err = addLokiHook(context.Background(), lokiCfg, log.GetLevel()); err != nil {
			log.WithField(ErrorTypeField, ErrorTypeConfig).Errorf("failed to enable loki logging: %v", err)
		}
	}
}

func levelOf(level config.LogLevel) log.Level {
	switch level {
	case config.LevelDebug:
		return log.DebugLevel
	case config.LevelWarning:
		return log.WarnLevel
	case config.LevelError:
		return log.ErrorLevel
	case config.LevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

func Cleanup() {
	if lokiPusher != nil {
		lokiPusher.Stop()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}
