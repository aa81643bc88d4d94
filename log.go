package ecs

import (
	"github.com/rs/zerolog"
)

func loadKindIntoArrayLogger(rec *componentRecord, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Uint32("component_id", uint32(rec.id))
	dictLogger = dictLogger.Str("component_name", rec.name)
	dictLogger = dictLogger.Uint32("size", rec.size)
	dictLogger = dictLogger.Uint32("version", rec.version)
	return arrayLogger.Dict(dictLogger)
}

func loadKindsToEvent(zeroLoggerEvent *zerolog.Event, r *Registry) *zerolog.Event {
	zeroLoggerEvent.Int("total_components", r.ComponentRegisterCount())
	arrayLogger := zerolog.Arr()
	for _, rec := range r.kinds.All() {
		arrayLogger = loadKindIntoArrayLogger(*rec, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

func loadEntityIntoArrayLogger(s *Scene, e Entity, arrayLogger *zerolog.Array) *zerolog.Array {
	in := &s.internal[e-1]
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Uint32("entity", uint32(e))
	dictLogger = dictLogger.Str("name", in.name)
	dictLogger = dictLogger.Uint32("parent", uint32(in.parent))
	dictLogger = dictLogger.Int("descendants", in.childCount)
	kinds := zerolog.Arr()
	for _, ref := range in.components {
		kinds = kinds.Str(s.allocators[ref.id].rec.name)
	}
	dictLogger = dictLogger.Array("components", kinds)
	return arrayLogger.Dict(dictLogger)
}

// LogRegistry logs every kind registered on r.
func LogRegistry(logger *zerolog.Logger, r *Registry, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	loadKindsToEvent(zeroLoggerEvent, r).Send()
}

// LogHierarchy logs the entities of s in depth-first order.
func LogHierarchy(logger *zerolog.Logger, s *Scene, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent.Str("scene", s.name)
	zeroLoggerEvent.Int("total_entities", len(s.entities))
	arrayLogger := zerolog.Arr()
	for _, e := range s.entities {
		arrayLogger = loadEntityIntoArrayLogger(s, e, arrayLogger)
	}
	zeroLoggerEvent.Array("entities", arrayLogger).Send()
}
