package tools

import (
    "context"
    "fmt"
    "reflect"
    "sort"
    "strings"
)

// Function is one entry of the catalog generated programs can call through
// the tools package.
type Function struct {
    Name      string
    Category  string
    Signature string
    Doc       string
    bind      func(ctx context.Context) any
}

// Catalog lists the functions available to generated programs.
type Catalog struct {
    box   *Toolbox
    fns   map[string]Function
    order []string
}

// NewCatalog registers every built-in function against box.
func NewCatalog(box *Toolbox) *Catalog {
    if box == nil { box = &Toolbox{} }
    c := &Catalog{box: box, fns: map[string]Function{}}
    c.register("web", "HTTPGet", "func(url string) (string, error)", "GET a URL and return the body.",
        func(ctx context.Context) any { return func(url string) (string, error) { return box.HTTPGet(ctx, url) } })
    c.register("web", "PostJSON", "func(url string, payload any) (string, error)", "POST payload as JSON and return the response body.",
        func(ctx context.Context) any { return func(url string, payload any) (string, error) { return box.PostJSON(ctx, url, payload) } })
    c.register("web", "ReadArticle", "func(url string) (map[string]string, error)", "Fetch a web page and return its main article as url, title, byline, excerpt and text.",
        func(ctx context.Context) any { return func(url string) (map[string]string, error) { return box.ReadArticle(ctx, url) } })
    c.register("web", "HTMLToText", "func(html string) string", "Strip markup from HTML and return readable text.",
        func(context.Context) any { return HTMLToText })
    c.register("web", "ExtractLinks", "func(html, baseURL string) []map[string]string", "List anchors as href/text rows, resolving relative links against baseURL.",
        func(context.Context) any { return ExtractLinks })
    c.register("data", "ParseCSV", "func(text string) ([]map[string]string, error)", "Parse CSV with a header row into row objects.",
        func(context.Context) any { return ParseCSV })
    c.register("data", "ParseDelimited", "func(text, delimiter string) ([]map[string]string, error)", "Parse delimited text with a header row using a one-character delimiter.",
        func(context.Context) any { return ParseDelimited })
    c.register("data", "RegexExtract", "func(text, pattern string) ([][]string, error)", "Find all matches; each row is the full match followed by submatches.",
        func(context.Context) any { return RegexExtract })
    c.register("data", "RegexExtractNamed", "func(text, pattern string) ([]map[string]string, error)", "Find all matches of a pattern with named groups (?P<name>...).",
        func(context.Context) any { return RegexExtractNamed })
    c.register("data", "ParseJSON", "func(raw string) (any, error)", "Decode JSON into maps, slices and float64 numbers.",
        func(context.Context) any { return ParseJSON })
    c.register("data", "PrettyJSON", "func(raw string) (string, error)", "Validate JSON and return it indented.",
        func(context.Context) any { return PrettyJSON })
    c.register("documents", "PDFText", "func(path, pages string) (string, error)", "Extract text from a local PDF; pages like \"1-3,7\" or empty for all.",
        func(ctx context.Context) any { return func(path, pages string) (string, error) { return box.PDFText(ctx, path, pages) } })
    c.register("documents", "FileText", "func(path string) (string, error)", "Read a local PDF, HTML or text file as plain text.",
        func(ctx context.Context) any { return func(path string) (string, error) { return box.FileText(ctx, path) } })
    c.register("language", "Summarize", "func(text string) (string, error)", "Summarize text of any length with the language model.",
        func(ctx context.Context) any { return func(text string) (string, error) { return box.Summarize(ctx, text) } })
    c.register("language", "Ask", "func(question string) (string, error)", "Ask the language model a question and return its answer.",
        func(ctx context.Context) any { return func(q string) (string, error) { return box.Ask(ctx, q) } })
    c.register("export", "WriteText", "func(name, content string) (string, error)", "Write a text file to the export directory and return its path.",
        func(context.Context) any { return box.WriteText })
    c.register("export", "WriteCSV", "func(name string, rows [][]string) (string, error)", "Write rows, header first, as CSV to the export directory and return its path.",
        func(context.Context) any { return box.WriteCSV })
    c.register("export", "WriteJSON", "func(name string, v any) (string, error)", "Write v as indented JSON to the export directory and return its path.",
        func(context.Context) any { return box.WriteJSON })
    return c
}

func (c *Catalog) register(category, name, sig, doc string, bind func(context.Context) any) {
    c.fns[name] = Function{Name: name, Category: category, Signature: sig, Doc: doc, bind: bind}
    c.order = append(c.order, name)
}

func (c *Catalog) Toolbox() *Toolbox { return c.box }

func (c *Catalog) Get(name string) (Function, bool) {
    f, ok := c.fns[name]
    return f, ok
}

// Names returns every function name in registration order.
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

func (c *Catalog) Categories() []string {
    seen := map[string]bool{}
    var out []string
    for _, n := range c.order {
        if cat := c.fns[n].Category; !seen[cat] { seen[cat] = true; out = append(out, cat) }
    }
    sort.Strings(out)
    return out
}

// Functions returns the names in category, or all names when category is
// empty or unknown.
func (c *Catalog) Functions(category string) []string {
    var out []string
    for _, n := range c.order {
        if c.fns[n].Category == category { out = append(out, n) }
    }
    if len(out) == 0 { return c.Names() }
    return out
}

// Descriptions maps names in category to their one-line doc.
func (c *Catalog) Descriptions(category string) (map[string]string, []string) {
    names := c.Functions(category)
    docs := make(map[string]string, len(names))
    for _, n := range names { docs[n] = c.fns[n].Doc }
    return docs, names
}

// GetDocs renders signature and doc for each known name. Unknown names are
// skipped.
func (c *Catalog) GetDocs(names []string) string {
    var b strings.Builder
    for _, n := range names {
        f, ok := c.fns[n]
        if !ok { continue }
        fmt.Fprintf(&b, "tools.%s %s\n    %s\n", f.Name, strings.TrimPrefix(f.Signature, "func"), f.Doc)
    }
    return strings.TrimRight(b.String(), "\n")
}

// Symbols binds every function to ctx for export into the interpreter.
func (c *Catalog) Symbols(ctx context.Context) map[string]reflect.Value {
    out := make(map[string]reflect.Value, len(c.fns))
    for name, f := range c.fns { out[name] = reflect.ValueOf(f.bind(ctx)) }
    return out
}
