package interpreter

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/goleak"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/store"
)

const goodProgram = `package main

import (
    "fmt"
    "strings"

    "blueprint/store"
)

func Run() error {
    words := strings.Fields("a b c")
    fmt.Println("counted", len(words))
    return store.Add("word_count", len(words))
}
`

func newRunner() (*Interpreter, *store.Store, Namespace) {
    s := store.New(nil, nil)
    return New(2*time.Second, nil), s, Namespace{StorePath: StoreSymbols(s)}
}

func TestExtractSource(t *testing.T) {
    assert.Equal(t, "package main\n\nfunc Run() error { return nil }",
        ExtractSource("Here:\n```go\nfunc Run() error { return nil }\n```\nthanks"))
    assert.Equal(t, "package x", ExtractSource("```\npackage x\n```"))
    assert.Equal(t, "package main", ExtractSource("  package main  "))
    assert.Equal(t, "", ExtractSource(""))
    assert.Equal(t, "", ExtractSource("I could not write the program."))
    assert.Equal(t, "package main\n\nfunc Run() error { return nil }", ExtractSource("func Run() error { return nil }"))
}

func TestCheckAcceptsContractProgram(t *testing.T) {
    r, _, ns := newRunner()
    assert.NoError(t, Check(goodProgram, []string{"word_count"}, r.Allowed(ns)))
}

func TestCheckReportsEveryProblem(t *testing.T) {
    src := `package main

import (
    "os"
    st "blueprint/store"
)

func main() {}

func Run(x int) error {
    st.Set("total", 1)
    return st.Add(keyName, os.Args)
}
`
    r, _, ns := newRunner()
    err := Check(src, []string{"total"}, r.Allowed(ns))
    var cc *models.CodeCheckError
    require.ErrorAs(t, err, &cc)
    assert.Len(t, cc.Problems, 4)
    assert.Contains(t, cc.Error(), `import "os" is not allowed`)
    assert.Contains(t, cc.Error(), "func main is not allowed")
    assert.Contains(t, cc.Error(), "Run must have signature")
    assert.Contains(t, cc.Error(), `no store.Add("total"`)
}

func TestCheckAliasAndMissingImport(t *testing.T) {
    aliased := "package main\nimport s \"blueprint/store\"\nfunc Run() (any, error) { return nil, s.Add(\"k\", 1) }\n"
    assert.NoError(t, Check(aliased, []string{"k"}, []string{StorePath}))

    var cc *models.CodeCheckError
    require.ErrorAs(t, Check("package main\nfunc Run() error { return nil }\n", []string{"k"}, nil), &cc)
    assert.Contains(t, cc.Error(), "missing import")

    require.ErrorAs(t, Check("package main\nfunc Run( {", nil, nil), &cc)
    assert.Contains(t, cc.Problems[0], "syntax")
}

func TestRunWritesStoreAndCapturesStdout(t *testing.T) {
    r, s, ns := newRunner()
    res, err := r.Run(context.Background(), goodProgram, ns)
    require.NoError(t, err)
    assert.Equal(t, "counted 3\n", res.Stdout)
    v, err := s.Get("word_count")
    require.NoError(t, err)
    assert.Equal(t, 3, v)
}

func TestRunReturnsValue(t *testing.T) {
    r, _, ns := newRunner()
    res, err := r.Run(context.Background(), "package main\nfunc Run() (any, error) { return \"hi\", nil }\n", ns)
    require.NoError(t, err)
    assert.Equal(t, "hi", res.Value)
}

func TestRunErrorsBecomeExecutionErrors(t *testing.T) {
    r, _, ns := newRunner()
    cases := map[string]string{
        "returned": "package main\nimport (\"errors\"; \"fmt\")\nfunc Run() error { fmt.Println(\"before\"); return errors.New(\"boom\") }\n",
        "panic":    "package main\nimport \"fmt\"\nfunc Run() error { fmt.Println(\"before\"); var m map[string]int; m[\"x\"] = 1; return nil }\n",
        "missing":  "package main\nimport (\"fmt\"; \"blueprint/store\")\nfunc Run() error { fmt.Println(\"before\"); _, err := store.Get(\"nope\"); return err }\n",
    }
    for name, src := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := r.Run(context.Background(), src, ns)
            var ce *models.CodeExecutionError
            require.ErrorAs(t, err, &ce)
            assert.Contains(t, ce.Stdout, "before")
        })
    }
}

func TestRunRejectsDisallowedImportAtRuntime(t *testing.T) {
    r, _, ns := newRunner()
    _, err := r.Run(context.Background(), "package main\nimport \"os\"\nfunc Run() error { _ = os.Args; return nil }\n", ns)
    var ce *models.CodeExecutionError
    assert.ErrorAs(t, err, &ce)
}

const runaway = `package main

import "blueprint/store"

func Run() error {
    n := 0
    for {
        n++
        store.Set("ticks", n)
    }
}
`

func TestRunTimeoutStopsProgram(t *testing.T) {
    defer goleak.VerifyNone(t)
    s := store.New(nil, nil)
    r := New(100*time.Millisecond, nil)
    start := time.Now()
    _, err := r.Run(context.Background(), runaway, Namespace{StorePath: StoreSymbols(s)})
    var ce *models.CodeExecutionError
    require.ErrorAs(t, err, &ce)
    assert.Contains(t, ce.Message, "timed out")
    assert.Less(t, time.Since(start), time.Second)

    time.Sleep(50 * time.Millisecond)
    before, err := s.Get("ticks")
    require.NoError(t, err)
    time.Sleep(150 * time.Millisecond)
    after, err := s.Get("ticks")
    require.NoError(t, err)
    assert.Equal(t, before, after, "program kept writing to the store after Run returned")
}

func TestAllowedIncludesNamespace(t *testing.T) {
    r, _, ns := newRunner()
    ns[ToolsPath] = nil
    got := r.Allowed(ns)
    assert.Contains(t, got, StorePath)
    assert.Contains(t, got, ToolsPath)
    assert.Contains(t, got, "fmt")
    assert.NotContains(t, got, "os")
}
