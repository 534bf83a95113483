package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RedisAdapter routes go-redis internal log lines into slog at warn level.
// It satisfies the logger interface accepted by redis.SetLogger.
type RedisAdapter struct {
	logger *slog.Logger
}

// NewRedisAdapter creates a RedisAdapter. If logger is nil, slog.Default() is used.
func NewRedisAdapter(logger *slog.Logger) *RedisAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAdapter{logger: WithService(logger, "redis")}
}

// Printf logs a formatted go-redis message.
func (a *RedisAdapter) Printf(ctx context.Context, format string, v ...interface{}) {
	a.logger.WarnContext(ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Logger returns the underlying slog.Logger.
func (a *RedisAdapter) Logger() *slog.Logger {
	return a.logger
}
