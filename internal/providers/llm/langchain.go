package llm

import (
    "context"
    "strings"

    "github.com/tmc/langchaingo/llms"
    "github.com/tmc/langchaingo/llms/ollama"
    "github.com/tmc/langchaingo/llms/openai"
)

// LangChainModel adapts any langchaingo model to LanguageModel.
type LangChainModel struct {
    Model       llms.Model
    Temperature float64
}

func (m *LangChainModel) Complete(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    opts := []llms.CallOption{llms.WithTemperature(m.Temperature)}
    if onToken != nil {
        opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
            if len(chunk) > 0 { onToken(string(chunk)) }
            return nil
        }))
    }
    return llms.GenerateFromSinglePrompt(ctx, m.Model, prompt, opts...)
}

// NewOllama connects to a local Ollama server through langchaingo.
func NewOllama(serverURL, model string) (*LangChainModel, error) {
    opts := []ollama.Option{ollama.WithModel(model)}
    if serverURL != "" { opts = append(opts, ollama.WithServerURL(strings.TrimRight(serverURL, "/"))) }
    m, err := ollama.New(opts...)
    if err != nil { return nil, err }
    return &LangChainModel{Model: m}, nil
}

// NewOpenAICompatible targets any OpenAI-compatible endpoint through
// langchaingo.
func NewOpenAICompatible(apiKey, model, baseURL string) (*LangChainModel, error) {
    opts := []openai.Option{
        openai.WithToken(apiKey),
        openai.WithModel(model),
    }
    if baseURL != "" {
        opts = append(opts, openai.WithBaseURL(baseURL))
    }
    m, err := openai.New(opts...)
    if err != nil { return nil, err }
    return &LangChainModel{Model: m}, nil
}
