package ecs

import (
	"github.com/rs/zerolog"

	"github.com/JoseLRM/OldSilverEngine/ecs/config"
)

type factory struct{}

var Factory factory

func (f factory) NewRegistry() *Registry {
	return NewRegistry()
}

func (f factory) NewScene(name string, registry *Registry, opts ...SceneOption) *Scene {
	return NewScene(name, registry, opts...)
}

func (f factory) NewCursor(scene *Scene, id CompID) *Cursor {
	return newCursor(scene, id)
}

// NewSceneManager returns a manager with no active scene.
func (f factory) NewSceneManager(registry *Registry, cfg config.SceneConfig, hooks HostHooks, logger zerolog.Logger) *SceneManager {
	return newSceneManager(registry, cfg, hooks, logger)
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return newSimpleCache[T](cap)
}
