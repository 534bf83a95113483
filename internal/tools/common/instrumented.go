package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a tool span, invocation
// metrics and a log line per call. Results with IsError set count as errors.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		account := GetAccountFromArgs(request.GetArguments(), sc.Account())

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}
		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)

		logger := logging.WithAccount(sc.Logger(), account).With(slog.String("tool", toolName))
		if status == instrumentation.StatusError {
			if err != nil {
				instrumentation.SetSpanError(span, err)
			}
			logger.Warn("tool invocation failed", logging.Status(status), slog.Duration("duration", duration), logging.Err(err))
		} else {
			instrumentation.SetSpanSuccess(span)
			logger.Info("tool invoked", logging.Status(status), slog.Duration("duration", duration))
		}

		return result, err
	}
}
