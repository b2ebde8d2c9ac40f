package kinds

import (
    "context"
    "fmt"
    "os"
    "strings"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/store"
)

const TagExport = "export"

var fileTypes = map[string]string{
    "csv":  "WriteCSV",
    "json": "WriteJSON",
    "txt":  "WriteText",
    "md":   "WriteText",
    "html": "WriteText",
}

// ExportKey is the derived key an export step stores the written path under.
func ExportKey(seq int) string { return fmt.Sprintf("export_file_%d", seq) }

func exportContract(step models.Step) []string {
    return append(append([]string(nil), step.ProducedData...), ExportKey(step.SequenceNumber))
}

func Export() Kind {
    return Kind{
        Tag:         TagExport,
        Description: "write data from earlier steps to a file; set file_type (csv, json, txt, md, html) and optionally file_name",
        FixBound:    DefaultFixBound,
        Validate:    validateExport,
        Info:        exportInfo,
        CodeGen: func(step models.Step, env Env) CodeGenerator {
            name := step.FileName
            if name == "" { name = fmt.Sprintf("export_%d.%s", step.SequenceNumber, step.FileType) }
            fn := fileTypes[step.FileType]
            return &promptBuilder{
                step:     step,
                contract: exportContract(step),
                guidance: fmt.Sprintf("Write the %s file %q with tools.%s and store the returned path under %q.",
                    step.FileType, name, fn, ExportKey(step.SequenceNumber)),
                docs: docsFor(env, fn),
            }
        },
        NewExecutor: newVerifier(exportContract, exportedFile),
    }
}

func validateExport(e models.PlanEntry) error {
    ft := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e.FileType), "."))
    if _, ok := fileTypes[ft]; !ok {
        return fmt.Errorf("file_type %q is not one of csv, json, txt, md, html", e.FileType)
    }
    return requireInputs(e)
}

func exportInfo(_ context.Context, _ Env, e models.PlanEntry) (models.Step, error) {
    step := materialize(e)
    step.FileType = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e.FileType), "."))
    step.FileName = strings.TrimSpace(e.FileName)
    if step.FileName != "" && !strings.HasSuffix(strings.ToLower(step.FileName), "."+step.FileType) {
        step.FileName += "." + step.FileType
    }
    return step, nil
}

func exportedFile(s *store.Store, step models.Step) error {
    key := ExportKey(step.SequenceNumber)
    v, err := s.Get(key)
    if err != nil { return err }
    path, ok := v.(string)
    if !ok || path == "" { return fmt.Errorf("%s must hold the written file path, got %T", key, v) }
    st, err := os.Stat(path)
    if err != nil { return fmt.Errorf("exported file: %w", err) }
    if st.Size() == 0 { return fmt.Errorf("exported file %s is empty", path) }
    return nil
}
