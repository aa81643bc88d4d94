// Command scenectl inspects scene files and benchmarks the entity store.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/JoseLRM/OldSilverEngine/ecs"
	"github.com/JoseLRM/OldSilverEngine/ecs/config"
)

type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "scenectl",
		Short:         "Inspect scene files and exercise the entity store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "engine TOML config (defaults when empty)")

	root.AddCommand(
		newInspectCmd(a),
		newBenchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Defaults()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	ecs.Config.SetLogger(a.logger)
	return nil
}
