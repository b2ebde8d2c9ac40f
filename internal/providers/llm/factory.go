package llm

import (
    "context"
    "fmt"
    "strings"
    "time"

    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/providers/gemini"
)

// Options selects and configures a provider.
type Options struct {
    Provider     string
    Model        string
    OpenAIKey    string
    OpenAIBase   string
    AnthropicKey string
    GoogleKey    string
    OllamaURL    string
    Timeout      time.Duration
    Debug        bool
    Logger       *zap.Logger
}

// New returns a LanguageModel for o.Provider:
// openai, openai-compatible, anthropic, gemini, gemini-http, ollama or mock.
// With no provider set the first configured API key wins, and with no key
// at all the offline MockModel is returned.
func New(ctx context.Context, o Options) (LanguageModel, error) {
    log := o.Logger
    if log == nil { log = zap.NewNop() }
    m, err := build(ctx, o)
    if err != nil { return nil, err }
    if o.Debug { m = &Logged{Next: m, Log: log} }
    return m, nil
}

func build(ctx context.Context, o Options) (LanguageModel, error) {
    prov := strings.ToLower(strings.TrimSpace(o.Provider))
    switch prov {
    case "":
    case "openai":
        if o.OpenAIKey == "" { return nil, fmt.Errorf("provider openai: OPENAI_API_KEY not set") }
        return &OpenAIClient{APIKey: o.OpenAIKey, Model: modelOr(o.Model, "gpt-4o-mini"), BaseURL: o.OpenAIBase, Timeout: o.Timeout}, nil
    case "openai-compatible":
        return NewOpenAICompatible(o.OpenAIKey, modelOr(o.Model, "gpt-4o-mini"), o.OpenAIBase)
    case "anthropic":
        if o.AnthropicKey == "" { return nil, fmt.Errorf("provider anthropic: ANTHROPIC_API_KEY not set") }
        return &AnthropicClient{APIKey: o.AnthropicKey, Model: modelOr(o.Model, "claude-3-5-sonnet-latest"), Timeout: o.Timeout}, nil
    case "gemini":
        if o.GoogleKey == "" { return nil, fmt.Errorf("provider gemini: GOOGLE_API_KEY not set") }
        return gemini.New(ctx, o.GoogleKey, modelOr(o.Model, "gemini-1.5-flash"))
    case "gemini-http":
        if o.GoogleKey == "" { return nil, fmt.Errorf("provider gemini-http: GOOGLE_API_KEY not set") }
        return &GeminiHTTPClient{APIKey: o.GoogleKey, Model: modelOr(o.Model, "gemini-1.5-flash"), Timeout: o.Timeout}, nil
    case "ollama":
        return NewOllama(o.OllamaURL, modelOr(o.Model, "llama3.1"))
    case "mock":
        return MockModel{}, nil
    default:
        return nil, fmt.Errorf("unknown LLM provider %q", o.Provider)
    }

    // Auto-detect by API key presence.
    switch {
    case o.OpenAIKey != "":
        return &OpenAIClient{APIKey: o.OpenAIKey, Model: modelOr(o.Model, "gpt-4o-mini"), BaseURL: o.OpenAIBase, Timeout: o.Timeout}, nil
    case o.AnthropicKey != "":
        return &AnthropicClient{APIKey: o.AnthropicKey, Model: modelOr(o.Model, "claude-3-5-sonnet-latest"), Timeout: o.Timeout}, nil
    case o.GoogleKey != "":
        return &GeminiHTTPClient{APIKey: o.GoogleKey, Model: modelOr(o.Model, "gemini-1.5-flash"), Timeout: o.Timeout}, nil
    case o.OllamaURL != "":
        return NewOllama(o.OllamaURL, modelOr(o.Model, "llama3.1"))
    }
    return MockModel{}, nil
}

func modelOr(v, def string) string {
    if v = strings.TrimSpace(v); v != "" { return v }
    return def
}

// Logged records every call's request header, size and latency.
type Logged struct {
    Next LanguageModel
    Log  *zap.Logger
}

func (l *Logged) Complete(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    header, _, _ := strings.Cut(prompt, "\n")
    start := time.Now()
    out, err := l.Next.Complete(ctx, prompt, onToken)
    fields := []zap.Field{
        zap.String("request", header),
        zap.Int("prompt_bytes", len(prompt)),
        zap.Int("reply_bytes", len(out)),
        zap.Duration("took", time.Since(start)),
    }
    if err != nil {
        l.Log.Warn("llm call failed", append(fields, zap.Error(err))...)
        return out, err
    }
    l.Log.Debug("llm call", fields...)
    return out, nil
}
