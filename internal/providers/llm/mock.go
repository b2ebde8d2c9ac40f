package llm

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "sync"

    "github.com/example/blueprint-engine/internal/prompts"
)

// ScriptedModel replays canned replies in order and records every prompt.
// Respond, when set, is consulted first; an empty reply from it falls
// through to the script.
type ScriptedModel struct {
    mu        sync.Mutex
    Responses []string
    Respond   func(prompt string) (string, error)
    Prompts   []string
}

func (m *ScriptedModel) Complete(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    if err := ctx.Err(); err != nil { return "", err }
    m.mu.Lock()
    m.Prompts = append(m.Prompts, prompt)
    respond := m.Respond
    m.mu.Unlock()
    if respond != nil {
        out, err := respond(prompt)
        if err != nil { return "", err }
        if out != "" { return emit(out, onToken), nil }
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    if len(m.Responses) == 0 { return "", errors.New("scripted model: no responses left") }
    out := m.Responses[0]
    m.Responses = m.Responses[1:]
    return emit(out, onToken), nil
}

// Calls returns a copy of the recorded prompts.
func (m *ScriptedModel) Calls() []string {
    m.mu.Lock()
    defer m.mu.Unlock()
    return append([]string(nil), m.Prompts...)
}

// emit streams s to onToken line by line.
func emit(s string, onToken func(string)) string {
    if onToken == nil { return s }
    for _, ln := range strings.SplitAfter(s, "\n") {
        if ln != "" { onToken(ln) }
    }
    return s
}

// MockModel answers every request kind offline so the whole pipeline can run
// without a provider. Plans are a two-step retrieve-then-analyze pipeline and
// programs add a placeholder value for each required key.
type MockModel struct{}

func (MockModel) Complete(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    if err := ctx.Err(); err != nil { return "", err }
    header, _, _ := strings.Cut(prompt, "\n")
    var out string
    switch strings.TrimSpace(header) {
    case prompts.HeaderPlan, prompts.HeaderRepair, prompts.HeaderModify:
        out = mockPlan(prompts.LineValue(prompt, prompts.QueryLabel))
    case prompts.HeaderSelect:
        out = mockSelect(prompt)
    case prompts.HeaderCode, prompts.HeaderFix:
        out = mockProgram(prompts.LineValue(prompt, prompts.KeysLabel))
    case prompts.HeaderReport:
        out = fmt.Sprintf("# Report\n\nOffline run for: %s\n\nNo language model is configured, so the findings above are placeholders.\n", prompts.LineValue(prompt, prompts.QueryLabel))
    default:
        out = "ok"
    }
    return emit(out, onToken), nil
}

func mockPlan(query string) string {
    task := strings.ReplaceAll(query, `"`, `'`)
    return fmt.Sprintf("```json\n{\"query_summary\": %q, \"steps\": [\n"+
        "  {\"kind\": \"retrieval\", \"task\": \"Collect data for: %s\", \"produced_data\": [\"source_data\"]},\n"+
        "  {\"kind\": \"analysis\", \"task\": \"Analyze source_data\", \"required_data\": [\"source_data\"]}\n"+
        "]}\n```", truncate(task, 80), task)
}

// mockSelect picks the first listed function.
func mockSelect(prompt string) string {
    for _, ln := range strings.Split(prompt, "\n") {
        if name, _, ok := strings.Cut(strings.TrimPrefix(ln, "- "), ":"); ok && strings.HasPrefix(ln, "- ") {
            return strings.TrimSpace(name)
        }
    }
    return ""
}

func mockProgram(keyList string) string {
    var b strings.Builder
    var keys []string
    for _, k := range strings.Split(keyList, ",") {
        if k = strings.TrimSpace(k); k != "" { keys = append(keys, k) }
    }
    usesTools := false
    for _, k := range keys { if strings.HasPrefix(k, "export_file_") { usesTools = true } }
    b.WriteString("```go\npackage main\n\nimport (\n    \"fmt\"\n\n    \"blueprint/store\"\n")
    if usesTools { b.WriteString("    \"blueprint/tools\"\n") }
    b.WriteString(")\n\nfunc Run() error {\n")
    for _, k := range keys {
        if strings.HasPrefix(k, "export_file_") {
            fmt.Fprintf(&b, "    path, err := tools.WriteText(%q, \"placeholder export\\n\")\n    if err != nil {\n        return err\n    }\n", k+".txt")
            fmt.Fprintf(&b, "    if err := store.Add(%q, path); err != nil {\n        return err\n    }\n", k)
            continue
        }
        fmt.Fprintf(&b, "    if err := store.Add(%q, \"placeholder for %s\"); err != nil {\n        return err\n    }\n", k, k)
    }
    fmt.Fprintf(&b, "    fmt.Println(\"stored %d keys\")\n    return nil\n}\n```", len(keys))
    return b.String()
}

func truncate(s string, n int) string {
    r := []rune(s)
    if len(r) <= n { return s }
    return string(r[:n])
}
