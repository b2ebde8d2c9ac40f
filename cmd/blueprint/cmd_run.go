package main

import (
    "errors"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"
    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "github.com/example/blueprint-engine/internal/orchestrator"
)

func newRunCmd(a *app) *cobra.Command {
    var save, from string
    cmd := &cobra.Command{
        Use:   "run [query]",
        Short: "Plan a query, run every step and print the report",
        Long: `Builds a plan for the query (or loads one with --from), synthesizes and
executes the program for each step in order, then writes the final report.
Progress events are printed as they arrive.`,
        Args: cobra.MaximumNArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            if from == "" && len(args) == 0 { return errors.New("a query is required unless --from is given") }
            ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
            defer cancel()

            eng, err := buildEngine(ctx, a.cfg, a.log)
            if err != nil { return err }
            defer eng.Close()

            var run orchestrator.Run
            if from != "" {
                if run, err = eng.orch.LoadSnapshot(ctx, from); err != nil { return err }
            } else {
                run = eng.orch.CreateRun(args[0])
            }

            out := cmd.OutOrStdout()
            events, unsub := eng.orch.Subscribe(run.ID)
            printer := &eventPrinter{w: out}
            g, gctx := errgroup.WithContext(ctx)
            g.Go(func() error {
                for ev := range events { printer.print(ev) }
                return nil
            })
            g.Go(func() error {
                defer unsub()
                return eng.orch.Start(gctx, run.ID)
            })
            runErr := g.Wait()

            final, _ := eng.orch.GetRun(run.ID)
            if final.Blueprint != nil {
                renderPlan(out, final.Blueprint.Current())
                if save != "" {
                    snap, err := eng.orch.SaveSnapshot(ctx, run.ID, save)
                    if err != nil { return errors.Join(runErr, err) }
                    fmt.Fprintf(out, "saved snapshot %s (%s)\n", snap.ID, snap.Name)
                }
            }
            a.log.Info("run complete", zap.String("run_id", run.ID), zap.String("status", string(final.Status)))
            return runErr
        },
    }
    cmd.Flags().StringVar(&save, "save", "", "save the blueprint as a snapshot with this name")
    cmd.Flags().StringVar(&from, "from", "", "run a saved snapshot instead of planning")
    return cmd
}
