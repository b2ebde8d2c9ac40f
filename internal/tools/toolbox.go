package tools

import (
    "os"
    "strconv"
    "time"

    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/providers/llm"
)

// Toolbox carries what the catalog functions need at run time.
type Toolbox struct {
    Client      llm.LanguageModel
    ExportDir   string
    HTTPTimeout time.Duration
    MaxBytes    int
    UserAgent   string
    Log         *zap.Logger
}

func (t *Toolbox) timeout() time.Duration {
    if t.HTTPTimeout > 0 { return t.HTTPTimeout }
    return 10 * time.Second
}

func (t *Toolbox) maxBytes() int {
    if t.MaxBytes > 0 { return t.MaxBytes }
    return envInt("HTTP_GET_MAX_BYTES", 2<<20)
}

func (t *Toolbox) logger() *zap.Logger {
    if t.Log == nil { return zap.NewNop() }
    return t.Log
}

func envInt(key string, def int) int {
    if v := os.Getenv(key); v != "" { if n, err := strconv.Atoi(v); err == nil { return n } }
    return def
}
