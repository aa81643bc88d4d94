package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JoseLRM/OldSilverEngine/ecs"
	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

func newInspectCmd(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:     "inspect <file|scene>",
		Short:   "Print the header, component manifest and hierarchy of a scene file",
		Example: "scenectl inspect scenes/main.scene\nscenectl inspect main --yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.resolveScene(args[0])
			r, err := archive.Open(path)
			if err != nil {
				return err
			}
			info, err := ecs.InspectScene(r)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", path, ecs.ResultOf(err), err)
			}
			a.logger.Debug().Str("path", path).Int("entities", len(info.Entities)).Msg("scene inspected")
			if asYAML {
				return info.WriteYAML(cmd.OutOrStdout())
			}
			printInfo(cmd.OutOrStdout(), path, info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "dump as YAML")
	return cmd
}

// resolveScene accepts a file path or a bare scene name looked up in the
// configured scene directory.
func (a *app) resolveScene(arg string) string {
	if _, err := os.Stat(arg); !errors.Is(err, os.ErrNotExist) || filepath.Ext(arg) != "" {
		return arg
	}
	return filepath.Join(a.cfg.Scene.Directory, arg+a.cfg.Scene.Extension)
}

func printInfo(w io.Writer, path string, info ecs.SceneInfo) {
	fmt.Fprintf(w, "%s (version %d)\n", path, info.Version)
	fmt.Fprintf(w, "  main camera:  %d\n", info.MainCamera)
	fmt.Fprintf(w, "  gravity:      %v\n", info.Gravity)
	fmt.Fprintf(w, "  air friction: %g\n", info.AirFriction)
	fmt.Fprintf(w, "  entity slots: %d\n", info.EntityDataCount)

	fmt.Fprintf(w, "components (%d):\n", len(info.Components))
	for _, c := range info.Components {
		fmt.Fprintf(w, "  %-24s size %-6d v%d\n", c.Name, c.Size, c.Version)
	}

	fmt.Fprintf(w, "entities (%d):\n", len(info.Entities))
	for _, e := range info.Entities {
		name := e.Name
		if name == "" {
			name = "Unnamed"
		}
		fmt.Fprintf(w, "  %s%s #%d pos %v\n", strings.Repeat("  ", e.Depth), name, e.Entity, e.Position)
	}
}
