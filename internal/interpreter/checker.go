package interpreter

import (
    "fmt"
    "go/ast"
    "go/parser"
    "go/token"
    "strconv"

    "github.com/example/blueprint-engine/internal/models"
)

// Check statically verifies that src honors the program contract: package
// main, only allowed imports, a Run entry point, no main function, and a
// store.Add call with a literal key for every contract key. All problems are
// reported together.
func Check(src string, contract, allowed []string) error {
    fset := token.NewFileSet()
    file, err := parser.ParseFile(fset, "step.go", src, 0)
    if err != nil {
        return &models.CodeCheckError{Problems: []string{"syntax: " + err.Error()}}
    }
    var problems []string
    if file.Name.Name != "main" {
        problems = append(problems, fmt.Sprintf("package must be main, got %s", file.Name.Name))
    }

    allow := make(map[string]bool, len(allowed))
    for _, a := range allowed { allow[a] = true }
    storeName := ""
    for _, imp := range file.Imports {
        path, _ := strconv.Unquote(imp.Path.Value)
        if !allow[path] { problems = append(problems, fmt.Sprintf("import %q is not allowed", path)) }
        if path == StorePath {
            storeName = "store"
            if imp.Name != nil { storeName = imp.Name.Name }
        }
    }
    if len(contract) > 0 && storeName == "" {
        problems = append(problems, fmt.Sprintf("missing import %q", StorePath))
    }

    hasRun := false
    for _, d := range file.Decls {
        fn, ok := d.(*ast.FuncDecl)
        if !ok || fn.Recv != nil { continue }
        switch fn.Name.Name {
        case "main":
            problems = append(problems, "func main is not allowed; define func Run() error")
        case "Run":
            hasRun = true
            if !validEntry(fn.Type) { problems = append(problems, "Run must have signature func Run() error") }
        }
    }
    if !hasRun { problems = append(problems, "missing func Run() error") }

    added := map[string]bool{}
    if storeName != "" {
        ast.Inspect(file, func(n ast.Node) bool {
            call, ok := n.(*ast.CallExpr)
            if !ok || len(call.Args) == 0 { return true }
            sel, ok := call.Fun.(*ast.SelectorExpr)
            if !ok || sel.Sel.Name != "Add" { return true }
            if id, ok := sel.X.(*ast.Ident); !ok || id.Name != storeName { return true }
            if lit, ok := call.Args[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
                if key, err := strconv.Unquote(lit.Value); err == nil { added[key] = true }
            }
            return true
        })
    }
    for _, k := range contract {
        if !added[k] { problems = append(problems, fmt.Sprintf("no store.Add(%q, ...) call with a literal key", k)) }
    }

    if len(problems) > 0 { return &models.CodeCheckError{Problems: problems} }
    return nil
}

func validEntry(ft *ast.FuncType) bool {
    if ft.TypeParams != nil && len(ft.TypeParams.List) > 0 { return false }
    if ft.Params != nil && len(ft.Params.List) > 0 { return false }
    if ft.Results == nil { return false }
    var results []ast.Expr
    for _, f := range ft.Results.List {
        n := len(f.Names)
        if n == 0 { n = 1 }
        for i := 0; i < n; i++ { results = append(results, f.Type) }
    }
    isErr := func(e ast.Expr) bool { id, ok := e.(*ast.Ident); return ok && id.Name == "error" }
    switch len(results) {
    case 1:
        return isErr(results[0])
    case 2:
        return isErr(results[1])
    }
    return false
}
