package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// Logger receives the navigation records (default: slog.Default()).
	Logger *slog.Logger

	// Priority orders the middleware in the pipeline (default: 100, so
	// logging observes the attempt before most other middleware).
	Priority int
}

// LoggingOption configures the logging middleware.
type LoggingOption func(*LoggingConfig)

// WithLoggingLogger sets the target logger.
func WithLoggingLogger(logger *slog.Logger) LoggingOption {
	return func(c *LoggingConfig) { c.Logger = logger }
}

// WithLoggingPriority sets the middleware priority.
func WithLoggingPriority(priority int) LoggingOption {
	return func(c *LoggingConfig) { c.Priority = priority }
}

type loggingMiddleware struct {
	logger   *slog.Logger
	priority int
}

// Logging creates middleware that logs every navigation attempt when it
// enters the pipeline and again, with elapsed time, after it completes.
func Logging(opts ...LoggingOption) route.Middleware {
	config := LoggingConfig{Logger: slog.Default(), Priority: 100}
	for _, opt := range opts {
		opt(&config)
	}
	return &loggingMiddleware{logger: config.Logger, priority: config.Priority}
}

func (m *loggingMiddleware) Name() string  { return "logging" }
func (m *loggingMiddleware) Priority() int { return m.priority }

func (m *loggingMiddleware) Handle(ctx context.Context, mc *route.MiddlewareContext) (route.MiddlewareResult, error) {
	m.logger.Debug("navigation started",
		"path", mc.Target.Path,
		"pattern", mc.Target.Pattern,
		"attempt", mc.AttemptID,
	)
	return route.Next(), nil
}

func (m *loggingMiddleware) AfterNavigation(ctx context.Context, mc *route.MiddlewareContext) {
	m.logger.Info("navigation completed",
		"path", mc.Target.Path,
		"pattern", mc.Target.Pattern,
		"attempt", mc.AttemptID,
		"elapsed", time.Since(mc.StartTime),
	)
}

func (m *loggingMiddleware) OnAborted(reason string) {
	m.logger.Info("navigation aborted", "reason", reason)
}
