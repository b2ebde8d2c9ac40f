package main

import (
    "fmt"

    "github.com/spf13/cobra"
)

func newPlanCmd(a *app) *cobra.Command {
    var (
        save    string
        changes []string
    )
    cmd := &cobra.Command{
        Use:   "plan <query>",
        Short: "Build a plan without executing it",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := cmd.Context()
            eng, err := buildEngine(ctx, a.cfg, a.log)
            if err != nil { return err }
            defer eng.Close()

            run := eng.orch.CreateRun(args[0])
            plan, err := eng.orch.PlanOnly(ctx, run.ID)
            if err != nil { return err }
            for _, change := range changes {
                if plan, err = eng.orch.ModifyPlan(ctx, run.ID, change); err != nil {
                    return fmt.Errorf("apply %q: %w", change, err)
                }
            }
            out := cmd.OutOrStdout()
            renderPlan(out, plan)
            if save != "" {
                snap, err := eng.orch.SaveSnapshot(ctx, run.ID, save)
                if err != nil { return err }
                fmt.Fprintf(out, "saved snapshot %s (%s)\n", snap.ID, snap.Name)
            }
            return nil
        },
    }
    cmd.Flags().StringVar(&save, "save", "", "save the plan as a snapshot with this name")
    cmd.Flags().StringArrayVar(&changes, "change", nil, "change request applied to the plan (repeatable)")
    return cmd
}
