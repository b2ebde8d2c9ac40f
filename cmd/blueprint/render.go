package main

import (
    "fmt"
    "io"
    "strings"

    "github.com/jedib0t/go-pretty/v6/table"
    "github.com/jedib0t/go-pretty/v6/text"

    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/storage"
)

func newTable(w io.Writer) table.Writer {
    t := table.NewWriter()
    t.SetOutputMirror(w)
    t.SetStyle(table.StyleLight)
    return t
}

func renderPlan(w io.Writer, plan *blueprint.StepCollection) {
    t := newTable(w)
    if s := plan.QuerySummary(); s != "" { t.SetTitle(s) }
    t.AppendHeader(table.Row{"#", "Kind", "Task", "Requires", "Produces", "Status"})
    for _, s := range plan.ListSteps() {
        task := s.Description
        if s.Changed { task += " (changed)" }
        t.AppendRow(table.Row{s.SequenceNumber, s.Kind, task, strings.Join(s.RequiredData, ", "), produces(s), s.Status})
    }
    t.SetColumnConfigs([]table.ColumnConfig{
        {Number: 1, Align: text.AlignRight},
        {Number: 3, WidthMax: 60},
    })
    t.Render()
}

func produces(s models.Step) string {
    out := strings.Join(s.ProducedData, ", ")
    extra := []string{}
    if len(s.SelectedFunctions) > 0 { extra = append(extra, "via "+strings.Join(s.SelectedFunctions, "/")) }
    if s.FileType != "" { extra = append(extra, s.FileType) }
    if len(extra) > 0 {
        if out != "" { out += " " }
        out += "[" + strings.Join(extra, "; ") + "]"
    }
    return out
}

func renderSnapshots(w io.Writer, list []storage.Snapshot) {
    t := newTable(w)
    t.AppendHeader(table.Row{"ID", "Name", "Steps", "Query", "Created"})
    for _, s := range list {
        t.AppendRow(table.Row{s.ID, s.Name, s.Steps, s.Query, s.CreatedAt.Local().Format("2006-01-02 15:04")})
    }
    t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 50}})
    t.AppendFooter(table.Row{"", "", len(list), "", ""})
    t.Render()
}

// eventPrinter writes progress events as they arrive. Report chunks are
// written raw so the report reads as it streams; other chunks are dropped.
type eventPrinter struct {
    w        io.Writer
    streamed bool
}

func (p *eventPrinter) print(ev models.Event) {
    if ev.Chunk {
        if ev.Type == models.EventReport {
            p.streamed = true
            fmt.Fprint(p.w, ev.Content)
        }
        return
    }
    prefix := string(ev.Type)
    if ev.Step > 0 { prefix = fmt.Sprintf("%s step %d", ev.Type, ev.Step) }
    switch ev.Type {
    case models.EventReport:
        if !p.streamed { fmt.Fprint(p.w, ev.Content) }
        fmt.Fprintln(p.w)
    case models.EventCode:
        fmt.Fprintf(p.w, "[%s] %d lines of code\n", prefix, strings.Count(ev.Content, "\n")+1)
    case models.EventPlan:
        fmt.Fprintf(p.w, "[%s] plan ready\n", prefix)
    default:
        fmt.Fprintf(p.w, "[%s] %s\n", prefix, ev.Content)
    }
}
