package logger

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
)

// ErrSentryDisabled 表示未配置 DSN。
var ErrSentryDisabled = errors.New("sentry dsn not configured")

// InitSentry 初始化 Sentry 并返回带 service 标签的 Hub。
// 未配置 DSN 时返回 ErrSentryDisabled，调用方可以直接使用 nil Hub。
func InitSentry(cfg config.SentryConfig, release, service string) (*sentry.Hub, error) {
	if cfg.DSN == "" {
		return nil, ErrSentryDisabled
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          release,
		AttachStacktrace: true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return nil, err
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", service)
	})
	return hub, nil
}

// Capture 记录错误日志并在 hub 非空时上报到 Sentry。
func (l *Logger) Capture(hub *sentry.Hub, err error, msg string, extras map[string]interface{}) {
	if err == nil {
		return
	}
	l.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(extras).Error(msg)

	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("context", msg)
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}

// FlushSentry 在退出前等待事件发送完成。
func FlushSentry(hub *sentry.Hub) {
	if hub != nil {
		hub.Flush(2 * time.Second)
	}
}
