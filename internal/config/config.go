// Package config loads engine settings from a YAML file, a .env file and
// the environment, in that order of precedence (environment wins).
package config

import (
    "errors"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

const DefaultPath = "blueprint.yaml"

type Config struct {
    LLM       LLM       `yaml:"llm"`
    Planner   Planner   `yaml:"planner"`
    Synthesis Synthesis `yaml:"synthesis"`
    Tools     Tools     `yaml:"tools"`
    Storage   Storage   `yaml:"storage"`
    Log       Log       `yaml:"log"`
}

type LLM struct {
    Provider     string        `yaml:"provider"`
    Model        string        `yaml:"model"`
    OpenAIKey    string        `yaml:"openai_api_key"`
    OpenAIBase   string        `yaml:"openai_api_base"`
    AnthropicKey string        `yaml:"anthropic_api_key"`
    GoogleKey    string        `yaml:"google_api_key"`
    OllamaURL    string        `yaml:"ollama_url"`
    Timeout      time.Duration `yaml:"timeout"`
    Debug        bool          `yaml:"debug"`
}

type Planner struct {
    MaxRetry int `yaml:"max_retry"`
}

type Synthesis struct {
    GenerateAttempts int            `yaml:"generate_attempts"`
    FixBound         int            `yaml:"fix_bound"`
    KindFixBounds    map[string]int `yaml:"kind_fix_bounds"`
    ExecTimeout      time.Duration  `yaml:"exec_timeout"`
}

type Tools struct {
    HTTPTimeout time.Duration `yaml:"http_timeout"`
    MaxBytes    int           `yaml:"max_bytes"`
    ExportDir   string        `yaml:"export_dir"`
    UserAgent   string        `yaml:"user_agent"`
}

type Storage struct {
    Path string `yaml:"path"`
}

type Log struct {
    Level  string `yaml:"level"`
    Format string `yaml:"format"`
}

func Default() Config {
    return Config{
        LLM:     LLM{Timeout: 45 * time.Second},
        Planner: Planner{MaxRetry: 3},
        Synthesis: Synthesis{
            GenerateAttempts: 3,
            FixBound:         3,
            KindFixBounds:    map[string]int{"retrieval": 8, "analysis": 8},
            ExecTimeout:      30 * time.Second,
        },
        Tools:   Tools{HTTPTimeout: 10 * time.Second, MaxBytes: 2 << 20, ExportDir: "exports", UserAgent: "blueprint-engine/1.0"},
        Storage: Storage{Path: "blueprint.db"},
        Log:     Log{Level: "info", Format: "console"},
    }
}

// Load builds the configuration. A missing file at path is not an error
// when path is the default one.
func Load(path string) (Config, error) {
    cfg := Default()
    explicit := path != ""
    if !explicit { path = DefaultPath }
    b, err := os.ReadFile(path)
    switch {
    case err == nil:
        if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, fmt.Errorf("parse %s: %w", path, err) }
    case errors.Is(err, os.ErrNotExist) && !explicit:
    default:
        return cfg, fmt.Errorf("read config: %w", err)
    }
    _ = godotenv.Load()
    if err := cfg.applyEnv(); err != nil { return cfg, err }
    return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
    str := func(key string, dst *string) {
        if v := strings.TrimSpace(os.Getenv(key)); v != "" { *dst = v }
    }
    str("LLM_PROVIDER", &c.LLM.Provider)
    str("LLM_MODEL", &c.LLM.Model)
    str("OPENAI_API_KEY", &c.LLM.OpenAIKey)
    str("OPENAI_API_BASE", &c.LLM.OpenAIBase)
    str("ANTHROPIC_API_KEY", &c.LLM.AnthropicKey)
    str("GOOGLE_API_KEY", &c.LLM.GoogleKey)
    str("OLLAMA_URL", &c.LLM.OllamaURL)
    str("BLUEPRINT_DB", &c.Storage.Path)
    str("BLUEPRINT_EXPORT_DIR", &c.Tools.ExportDir)
    if os.Getenv("LLM_DEBUG") == "1" {
        c.LLM.Debug = true
        c.Log.Level = "debug"
    }

    ints := []struct {
        key string
        dst *int
    }{
        {"BLUEPRINT_MAX_RETRY", &c.Planner.MaxRetry},
        {"BLUEPRINT_FIX_BOUND", &c.Synthesis.FixBound},
    }
    for _, e := range ints {
        v := os.Getenv(e.key)
        if v == "" { continue }
        n, err := strconv.Atoi(v)
        if err != nil { return fmt.Errorf("%s: %w", e.key, err) }
        *e.dst = n
    }

    millis := []struct {
        key string
        dst *time.Duration
    }{
        {"LLM_HTTP_TIMEOUT_MS", &c.LLM.Timeout},
        {"BLUEPRINT_EXEC_TIMEOUT_MS", &c.Synthesis.ExecTimeout},
    }
    for _, e := range millis {
        v := os.Getenv(e.key)
        if v == "" { continue }
        n, err := strconv.Atoi(v)
        if err != nil { return fmt.Errorf("%s: %w", e.key, err) }
        *e.dst = time.Duration(n) * time.Millisecond
    }
    return nil
}

func (c Config) Validate() error {
    var problems []string
    if c.Planner.MaxRetry <= 0 { problems = append(problems, "planner.max_retry must be positive") }
    if c.Synthesis.GenerateAttempts <= 0 { problems = append(problems, "synthesis.generate_attempts must be positive") }
    if c.Synthesis.FixBound <= 0 { problems = append(problems, "synthesis.fix_bound must be positive") }
    for kind, n := range c.Synthesis.KindFixBounds {
        if n <= 0 { problems = append(problems, fmt.Sprintf("synthesis.kind_fix_bounds.%s must be positive", kind)) }
    }
    if c.Synthesis.ExecTimeout <= 0 { problems = append(problems, "synthesis.exec_timeout must be positive") }
    if c.LLM.Timeout <= 0 { problems = append(problems, "llm.timeout must be positive") }
    if c.Tools.HTTPTimeout <= 0 { problems = append(problems, "tools.http_timeout must be positive") }
    switch c.Log.Format {
    case "console", "json":
    default:
        problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
    }
    if len(problems) > 0 { return fmt.Errorf("invalid config: %s", strings.Join(problems, "; ")) }
    return nil
}

// FixBounds resolves the bound for every kind in tags: the per-kind value
// when set, the global fix_bound otherwise.
func (c Config) FixBounds(tags []string) map[string]int {
    out := make(map[string]int, len(tags))
    for _, t := range tags {
        out[t] = c.Synthesis.FixBound
        if n, ok := c.Synthesis.KindFixBounds[t]; ok { out[t] = n }
    }
    return out
}
