package logger

import (
	"log/slog"
	"os"

	slogotel "github.com/remychantenay/slog-otel"
)

var LogLevel = new(slog.LevelVar)

var jsonHandler = slog.NewJSONHandler(
	os.Stderr,
	&slog.HandlerOptions{AddSource: true, Level: LogLevel},
)
var sloghandler = slogotel.NewOtelHandler(slogotel.WithNoTraceEvents(true))
var Handler = sloghandler(jsonHandler)
var Logger = slog.New(Handler)

// Set on records describing data that needs a human to repair it
const OperatorAttentionKey = "operator_attention"

func InitSlog(level slog.Level) {
	slog.SetDefault(Logger)
	LogLevel.Set(level)
}

func OperatorAttention() slog.Attr {
	return slog.Bool(OperatorAttentionKey, true)
}
