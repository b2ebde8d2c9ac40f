package main

import (
    "fmt"
    "os"

    "github.com/spf13/cobra"
    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/config"
    "github.com/example/blueprint-engine/internal/logging"
)

// app holds what every command needs once the root pre-run has loaded it.
type app struct {
    configPath string
    verbose    bool

    cfg config.Config
    log *zap.Logger
}

func newRootCmd() *cobra.Command {
    a := &app{}
    root := &cobra.Command{
        Use:           "blueprint",
        Short:         "Plan, synthesize and run LLM-written step pipelines",
        SilenceUsage:  true,
        SilenceErrors: true,
        PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
            cfg, err := config.Load(a.configPath)
            if err != nil { return err }
            log, err := logging.New(cfg.Log, a.verbose)
            if err != nil { return err }
            a.cfg, a.log = cfg, log
            return nil
        },
        PersistentPostRun: func(cmd *cobra.Command, args []string) {
            if a.log != nil { _ = a.log.Sync() }
        },
    }
    root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default blueprint.yaml)")
    root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
    root.AddCommand(newRunCmd(a), newPlanCmd(a), newSnapshotsCmd(a))
    return root
}

func main() {
    if err := newRootCmd().Execute(); err != nil {
        fmt.Fprintln(os.Stderr, "error:", err)
        os.Exit(1)
    }
}
