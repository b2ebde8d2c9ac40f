// Package logging builds the process logger.
package logging

import (
    "fmt"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"

    "github.com/example/blueprint-engine/internal/config"
)

// New builds a zap logger: JSON for format "json", console otherwise.
// verbose forces debug level. Logs go to stderr so stdout stays free for
// command output.
func New(cfg config.Log, verbose bool) (*zap.Logger, error) {
    zc := zap.NewDevelopmentConfig()
    if cfg.Format == "json" { zc = zap.NewProductionConfig() }
    level := zapcore.InfoLevel
    if cfg.Level != "" {
        if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
            return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
        }
    }
    if verbose { level = zapcore.DebugLevel }
    zc.Level = zap.NewAtomicLevelAt(level)
    zc.OutputPaths = []string{"stderr"}
    zc.ErrorOutputPaths = []string{"stderr"}
    zc.DisableStacktrace = !verbose
    logger, err := zc.Build()
    if err != nil { return nil, fmt.Errorf("failed to initialize logger: %w", err) }
    return logger, nil
}
