package main

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/JoseLRM/OldSilverEngine/ecs"
	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

type benchOptions struct {
	entities   int
	kinds      int
	rounds     int
	profile    string
	profileDir string
}

func newBenchCmd(a *app) *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a create / iterate / destroy / save workload against a scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var stopper interface{ Stop() }
			switch opts.profile {
			case "":
			case "cpu":
				stopper = profile.Start(profile.CPUProfile, profile.ProfilePath(opts.profileDir), profile.NoShutdownHook)
			case "mem":
				stopper = profile.Start(profile.MemProfileAllocs, profile.ProfilePath(opts.profileDir), profile.NoShutdownHook)
			default:
				return fmt.Errorf("unknown profile mode %q, want cpu or mem", opts.profile)
			}
			if stopper != nil {
				defer stopper.Stop()
			}
			for round := range opts.rounds {
				if err := a.benchRound(round, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.entities, "entities", "n", 10000, "entities per round")
	cmd.Flags().IntVar(&opts.kinds, "kinds", 4, "component kinds to register")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 1, "number of rounds")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "profile mode: cpu or mem")
	cmd.Flags().StringVar(&opts.profileDir, "profile-dir", ".", "directory for profile output")
	return cmd
}

type stepTimer struct {
	start time.Time
	steps map[string]time.Duration
}

func (t *stepTimer) lap(name string) {
	now := time.Now()
	t.steps[name] = now.Sub(t.start)
	t.start = now
}

func (a *app) benchRound(round int, opts benchOptions) error {
	registry := ecs.NewRegistry()
	ids := make([]ecs.CompID, opts.kinds)
	for i := range ids {
		id, err := registry.RegisterComponent(ecs.ComponentDescriptor{
			Name:    fmt.Sprintf("Bench%d", i),
			Size:    uint32(8 * (i + 1)),
			Version: 1,
		})
		if err != nil {
			return err
		}
		ids[i] = id
	}
	scene := ecs.NewScene(fmt.Sprintf("bench-%d", round), registry,
		ecs.WithLogger(a.logger),
		ecs.WithGravity(a.cfg.Scene.Gravity),
		ecs.WithAirFriction(a.cfg.Scene.AirFriction),
	)
	defer scene.Close()

	timer := &stepTimer{start: time.Now(), steps: map[string]time.Duration{}}

	// Groups of one root and seven children
	var parent ecs.Entity
	entities := make([]ecs.Entity, 0, opts.entities)
	for i := range opts.entities {
		if i%8 == 0 {
			parent = ecs.NoEntity
		}
		e, err := scene.CreateEntity(parent, "")
		if err != nil {
			return err
		}
		if i%8 == 0 {
			parent = e
		}
		for k, id := range ids {
			if (i+k)%2 == 0 {
				if _, err := scene.AddComponent(e, id); err != nil {
					return err
				}
			}
		}
		entities = append(entities, e)
	}
	timer.lap("create")

	visited := 0
	for _, id := range ids {
		for e := range scene.Components(id) {
			scene.Transform(e).Translate(mgl32.Vec3{1, 0, 0})
			visited++
		}
	}
	for _, e := range entities {
		_ = scene.Transform(e).WorldMatrix()
	}
	timer.lap("iterate")

	for i, e := range entities {
		if i%3 == 0 && scene.EntityExists(e) {
			if err := scene.DestroyEntity(e); err != nil {
				return err
			}
		}
	}
	moved := 0
	for _, id := range ids {
		n, err := scene.CompactComponents(id)
		if err != nil {
			return err
		}
		moved += n
	}
	timer.lap("destroy")

	w := archive.NewWriter()
	if err := scene.Serialize(w); err != nil {
		return err
	}
	loaded := ecs.NewScene("reload", registry, ecs.WithLogger(a.logger))
	defer loaded.Close()
	if err := loaded.Deserialize(archive.NewReader(w.Bytes())); err != nil {
		return err
	}
	timer.lap("serialize")

	ev := a.logger.Info().
		Int("round", round).
		Int("entities", opts.entities).
		Int("visited", visited).
		Int("alive", loaded.EntityCount()).
		Int("compacted", moved).
		Int("bytes", w.Len())
	for name, d := range timer.steps {
		ev = ev.Dur(name, d)
	}
	ev.Msg("bench round")
	return nil
}
