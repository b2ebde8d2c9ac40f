// Package prompts holds every prompt the engine sends to a language model.
// Each prompt opens with a request header so replies and logs can be matched
// to the request kind.
package prompts

import (
    "fmt"
    "strings"

    "github.com/example/blueprint-engine/internal/models"
)

const (
    HeaderPlan   = "## request: plan"
    HeaderRepair = "## request: plan repair"
    HeaderModify = "## request: plan modify"
    HeaderSelect = "## request: function selection"
    HeaderCode   = "## request: code"
    HeaderFix    = "## request: code fix"
    HeaderReport = "## request: report"

    QueryLabel = "Query: "
    KeysLabel  = "Required store keys: "
)

// SummaryUnavailable stands in for a required key that has no description yet.
const SummaryUnavailable = "(summary unavailable)"

// KindInfo is one line of the step kind catalog shown to the planner.
type KindInfo struct {
    Tag         string
    Description string
}

const storeAPI = `Shared data is reached only through the store package:
    import "blueprint/store"

    store.Get(key string) (any, error)       // MissingKeyError if absent
    store.Has(key string) bool
    store.Keys() []string
    store.Summary(key string) string
    store.Add(key string, value any) error   // DuplicateKeyError if key exists
    store.Set(key string, value any)         // explicit overwrite
    store.Remove(key string) error`

const planRules = `Rules:
- Reply with JSON only: {"query_summary": "<one line>", "steps": [ ... ]}. A fenced block is fine, prose is not.
- Every step's "kind" must be one of the kinds listed above.
- "produced_data" names the store keys the step adds; use short snake_case English names.
- "required_data" may only name keys produced by earlier steps.
- Keep tasks concrete: say what data, what computation, what output.
- Use as few steps as the query needs.`

func catalog(kinds []KindInfo) string {
    var b strings.Builder
    for _, k := range kinds { fmt.Fprintf(&b, "- %s: %s\n", k.Tag, k.Description) }
    return b.String()
}

// Plan asks for a fresh plan.
func Plan(query string, kinds []KindInfo, schema string) string {
    return fmt.Sprintf(`%s
You are a planning agent. Break the query into an ordered pipeline of typed steps.

%s%s

Step kinds:
%s
Each step must match this JSON schema:
%s

%s`, HeaderPlan, QueryLabel, query, catalog(kinds), schema, planRules)
}

// Repair asks for a corrected plan after a validation or build failure.
func Repair(query string, kinds []KindInfo, schema, previous, failure string) string {
    return fmt.Sprintf(`%s
Your previous plan for this query could not be used. Fix it.

%s%s

Previous plan:
%s

Error:
%s

Step kinds:
%s
Each step must match this JSON schema:
%s

%s
- Address the error above directly; keep steps that were fine.`, HeaderRepair, QueryLabel, query, previous, failure, catalog(kinds), schema, planRules)
}

// Modify asks for a revised plan that applies a change request.
func Modify(query string, kinds []KindInfo, schema, current, request string) string {
    return fmt.Sprintf(`%s
Revise the current plan according to the change request. You may add, remove, reorder or rewrite steps.

%s%s

Current plan:
%s

Change request:
%s

Step kinds:
%s
Each step must match this JSON schema:
%s

%s`, HeaderModify, QueryLabel, query, current, request, catalog(kinds), schema, planRules)
}

// SelectFunctions asks which catalog functions a retrieval step needs.
func SelectFunctions(task string, functions map[string]string, order []string) string {
    var b strings.Builder
    for _, name := range order { fmt.Fprintf(&b, "- %s: %s\n", name, functions[name]) }
    return fmt.Sprintf(`%s
Pick the functions needed for this data retrieval task.

Task: %s

Functions:
%s
Reply with a comma-separated list of function names and nothing else.`, HeaderSelect, task, b.String())
}

// DataSummary describes one required key for a code prompt.
type DataSummary struct {
    Key     string
    Summary string
}

// CodeRequest is everything a code prompt is built from.
type CodeRequest struct {
    Query     string
    Step      models.Step
    Guidance  string
    Keys      []string
    Summaries []DataSummary
    Docs      string
    Allowed   []string
}

// Code asks for the program that realizes one step.
func Code(r CodeRequest) string {
    var b strings.Builder
    fmt.Fprintf(&b, "%s\n", HeaderCode)
    b.WriteString("Write a Go program that performs one step of a data pipeline.\n\n")
    fmt.Fprintf(&b, "%s%s\n", QueryLabel, r.Query)
    fmt.Fprintf(&b, "Step %d (%s): %s\n\n", r.Step.SequenceNumber, r.Step.Kind, r.Step.Description)
    if len(r.Summaries) > 0 {
        b.WriteString("Input data already in the store:\n")
        for _, s := range r.Summaries { fmt.Fprintf(&b, "### %s\n%s\n\n", s.Key, s.Summary) }
    }
    if r.Docs != "" {
        b.WriteString("Available functions (package tools, import \"blueprint/tools\"):\n")
        b.WriteString(r.Docs)
        b.WriteString("\n\n")
    }
    if r.Guidance != "" { b.WriteString(r.Guidance + "\n\n") }
    b.WriteString(contract(r.Keys, r.Allowed))
    return b.String()
}

// Fix asks for a full replacement of a failing program.
func Fix(step models.Step, source, failure string, keys, allowed []string) string {
    var b strings.Builder
    fmt.Fprintf(&b, "%s\n", HeaderFix)
    fmt.Fprintf(&b, "The program for step %d (%s) failed. Return a complete corrected program, not a patch.\n\n", step.SequenceNumber, step.Kind)
    fmt.Fprintf(&b, "Step: %s\n\n", step.Description)
    fmt.Fprintf(&b, "Program:\n```go\n%s\n```\n\n", source)
    fmt.Fprintf(&b, "Error:\n%s\n\n", failure)
    b.WriteString(contract(keys, allowed))
    return b.String()
}

func contract(keys, allowed []string) string {
    var b strings.Builder
    b.WriteString("Program contract:\n")
    b.WriteString("- package main, no main function.\n")
    b.WriteString("- Entry point: func Run() error\n")
    b.WriteString("- " + storeAPI + "\n")
    fmt.Fprintf(&b, "- %s%s\n", KeysLabel, strings.Join(keys, ", "))
    b.WriteString("- Call store.Add(\"<key>\", value) with the key as a string literal for each required key.\n")
    fmt.Fprintf(&b, "- Allowed imports: %s\n", strings.Join(allowed, ", "))
    b.WriteString("- Print progress with fmt.Println; return an error instead of panicking.\n")
    b.WriteString("Reply with the whole program in one ```go fenced block.\n")
    return b.String()
}

// Finding is one analysis result fed to the report.
type Finding struct {
    Step        int
    Description string
    Result      string
}

// Report asks for the final answer assembled from the findings.
func Report(query, summary string, findings []Finding) string {
    var b strings.Builder
    fmt.Fprintf(&b, "%s\n", HeaderReport)
    b.WriteString("Write the final report for the query using only the findings below. Be specific, cite numbers, and note gaps.\n\n")
    fmt.Fprintf(&b, "%s%s\n", QueryLabel, query)
    if summary != "" { fmt.Fprintf(&b, "Summary of the request: %s\n", summary) }
    b.WriteString("\nFindings:\n")
    for _, f := range findings {
        fmt.Fprintf(&b, "### Step %d: %s\n%s\n\n", f.Step, f.Description, f.Result)
    }
    b.WriteString("Format the report in Markdown.")
    return b.String()
}

// LineValue returns the text after label on the first line that starts
// with it.
func LineValue(prompt, label string) string {
    for _, ln := range strings.Split(prompt, "\n") {
        ln = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ln), "- "))
        if strings.HasPrefix(ln, label) { return strings.TrimSpace(strings.TrimPrefix(ln, label)) }
    }
    return ""
}
