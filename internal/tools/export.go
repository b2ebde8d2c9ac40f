package tools

import (
    "encoding/csv"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "go.uber.org/zap"
)

// exportPath confines name to the export directory.
func (t *Toolbox) exportPath(name string) (string, error) {
    name = strings.TrimSpace(name)
    if name == "" { return "", fmt.Errorf("missing file name") }
    base := filepath.Base(filepath.Clean(name))
    if base == "." || base == ".." || base == string(filepath.Separator) {
        return "", fmt.Errorf("invalid file name %q", name)
    }
    dir := t.ExportDir
    if dir == "" { dir = "exports" }
    if err := os.MkdirAll(dir, 0o755); err != nil { return "", err }
    return filepath.Join(dir, base), nil
}

// WriteText writes content to name in the export directory and returns the path.
func (t *Toolbox) WriteText(name, content string) (string, error) {
    path, err := t.exportPath(name)
    if err != nil { return "", err }
    if err := os.WriteFile(path, []byte(content), 0o644); err != nil { return "", err }
    t.logger().Info("export written", zap.String("path", path), zap.Int("bytes", len(content)))
    return path, nil
}

// WriteCSV writes rows (header first) to name in the export directory.
func (t *Toolbox) WriteCSV(name string, rows [][]string) (string, error) {
    path, err := t.exportPath(name)
    if err != nil { return "", err }
    f, err := os.Create(path)
    if err != nil { return "", err }
    w := csv.NewWriter(f)
    if err := w.WriteAll(rows); err != nil {
        f.Close()
        return "", err
    }
    if err := f.Close(); err != nil { return "", err }
    t.logger().Info("export written", zap.String("path", path), zap.Int("rows", len(rows)))
    return path, nil
}

// WriteJSON writes v as indented JSON to name in the export directory.
func (t *Toolbox) WriteJSON(name string, v any) (string, error) {
    b, err := json.MarshalIndent(v, "", "  ")
    if err != nil { return "", err }
    return t.WriteText(name, string(b))
}
