package ecs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/JoseLRM/OldSilverEngine/ecs/config"
)

// HostHooks are the host callbacks consulted around scene switches.
type HostHooks struct {
	SceneHooks

	// Validate is asked whether a scene name is acceptable. Nil accepts all.
	Validate func(name string) bool
	// FilePath resolves a scene name to a file. Nil uses the configured
	// directory and extension.
	FilePath func(name string) (string, bool)
}

// SceneManager keeps the host's active scene and swaps it on request.
type SceneManager struct {
	registry *Registry
	cfg      config.SceneConfig
	hooks    HostHooks
	logger   zerolog.Logger
	active   *Scene
}

func newSceneManager(registry *Registry, cfg config.SceneConfig, hooks HostHooks, logger zerolog.Logger) *SceneManager {
	return &SceneManager{
		registry: registry,
		cfg:      cfg,
		hooks:    hooks,
		logger:   logger,
	}
}

// Active returns the current scene, or nil before the first switch.
func (m *SceneManager) Active() *Scene {
	return m.active
}

// ScenePath resolves name to its scene file.
func (m *SceneManager) ScenePath(name string) (string, error) {
	if m.hooks.FilePath != nil {
		path, ok := m.hooks.FilePath(name)
		if !ok {
			return "", eris.Wrapf(ErrNotFound, "no file path for scene %q", name)
		}
		return path, nil
	}
	return filepath.Join(m.cfg.Directory, name+m.cfg.Extension), nil
}

// Start switches to the configured main scene.
func (m *SceneManager) Start() error {
	return m.SwitchScene(m.cfg.Main)
}

// SwitchScene makes name the active scene. Its file is loaded when present,
// otherwise the scene starts empty with the configured properties. On
// failure the previous scene stays active; on success it is closed.
func (m *SceneManager) SwitchScene(name string) error {
	if name == "" {
		return eris.Wrap(ErrNotFound, "empty scene name")
	}
	if m.hooks.Validate != nil && !m.hooks.Validate(name) {
		return eris.Wrapf(ErrNotFound, "scene %q was rejected by the host", name)
	}
	path, err := m.ScenePath(name)
	if err != nil {
		return err
	}

	opts := []SceneOption{
		WithLogger(m.logger),
		WithHooks(m.hooks.SceneHooks),
		WithGravity(m.cfg.Gravity),
		WithAirFriction(m.cfg.AirFriction),
	}
	var next *Scene
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		next = NewScene(name, m.registry, opts...)
		if err := next.initialize(nil); err != nil {
			next.release()
			return err
		}
	} else if next, err = LoadScene(path, m.registry, opts...); err != nil {
		return err
	}
	next.name = name

	if m.active != nil {
		m.active.Close()
	}
	m.active = next
	m.logger.Info().Str("scene", name).Str("path", path).Int("entities", next.EntityCount()).Msg("scene switched")
	return nil
}

// SaveScene writes the active scene to its file, creating the directory.
func (m *SceneManager) SaveScene() error {
	if m.active == nil {
		return eris.Wrap(ErrInvalidUsage, "no active scene to save")
	}
	path, err := m.ScenePath(m.active.name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(ErrUnknown, "create scene directory: %v", err)
	}
	return m.active.Save(path)
}

// Close closes the active scene.
func (m *SceneManager) Close() {
	if m.active != nil {
		m.active.Close()
		m.active = nil
	}
}
