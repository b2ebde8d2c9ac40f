package main

import (
    "fmt"

    "github.com/spf13/cobra"

    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/storage"
)

func newSnapshotsCmd(a *app) *cobra.Command {
    cmd := &cobra.Command{
        Use:     "snapshots",
        Aliases: []string{"snap"},
        Short:   "Manage saved blueprints",
    }
    open := func() (*storage.Repository, error) { return storage.Open(a.cfg.Storage.Path, a.log.Named("storage")) }

    cmd.AddCommand(&cobra.Command{
        Use:   "list",
        Short: "List saved snapshots, newest first",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            repo, err := open()
            if err != nil { return err }
            defer repo.Close()
            list, err := repo.List(cmd.Context())
            if err != nil { return err }
            renderSnapshots(cmd.OutOrStdout(), list)
            return nil
        },
    })

    cmd.AddCommand(&cobra.Command{
        Use:   "show <id>",
        Short: "Print the plan stored in a snapshot",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            repo, err := open()
            if err != nil { return err }
            defer repo.Close()
            snap, err := repo.Get(cmd.Context(), args[0])
            if err != nil { return err }
            bp, err := blueprint.Decode(snap.Blob)
            if err != nil { return err }
            out := cmd.OutOrStdout()
            fmt.Fprintf(out, "%s  %q\nquery: %s\nmax_retry: %d  stored programs: %d\n",
                snap.ID, snap.Name, snap.Query, bp.MaxRetry, len(bp.Sources()))
            renderPlan(out, bp.Plan)
            return nil
        },
    })

    cmd.AddCommand(&cobra.Command{
        Use:   "delete <id>",
        Short: "Delete a snapshot",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            repo, err := open()
            if err != nil { return err }
            defer repo.Close()
            if err := repo.Delete(cmd.Context(), args[0]); err != nil { return err }
            fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
            return nil
        },
    })
    return cmd
}
