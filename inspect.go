package ecs

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

// SceneInfo summarizes a scene file without instantiating it.
type SceneInfo struct {
	Version         uint32          `yaml:"version"`
	MainCamera      Entity          `yaml:"main_camera"`
	Gravity         [3]float32      `yaml:"gravity,flow"`
	AirFriction     float32         `yaml:"air_friction"`
	EntityDataCount int             `yaml:"entity_data_count"`
	Components      []ComponentInfo `yaml:"components"`
	Entities        []EntityInfo    `yaml:"entities"`
}

type ComponentInfo struct {
	Name    string `yaml:"name"`
	Size    uint32 `yaml:"size"`
	Version uint32 `yaml:"version"`
}

// EntityInfo is one entity record, listed in depth-first order.
type EntityInfo struct {
	Entity      Entity     `yaml:"entity"`
	Name        string     `yaml:"name"`
	Parent      Entity     `yaml:"parent,omitempty"`
	Depth       int        `yaml:"depth"`
	Descendants int        `yaml:"descendants"`
	Position    [3]float32 `yaml:"position,flow"`
	Rotation    [4]float32 `yaml:"rotation,flow"`
	Scale       [3]float32 `yaml:"scale,flow"`
	SystemFlags uint32     `yaml:"system_flags"`
	UserFlags   uint32     `yaml:"user_flags"`
}

// InspectScene reads the header, manifest and entity block of a scene
// archive. It needs no registry and stops before the component sections.
func InspectScene(r *archive.Reader) (SceneInfo, error) {
	header, err := readHeader(r)
	if err != nil {
		return SceneInfo{}, err
	}
	manifest, err := readManifest(r)
	if err != nil {
		return SceneInfo{}, err
	}
	records, dataCount, err := readEntityRecords(r)
	if err != nil {
		return SceneInfo{}, err
	}

	info := SceneInfo{
		Version:         header.version,
		MainCamera:      header.mainCamera,
		Gravity:         header.gravity,
		AirFriction:     header.airFriction,
		EntityDataCount: dataCount,
		Components:      make([]ComponentInfo, len(manifest)),
		Entities:        make([]EntityInfo, len(records)),
	}
	for i, m := range manifest {
		info.Components[i] = ComponentInfo{Name: m.name, Size: m.size, Version: m.version}
	}

	counts := make([]int, len(records))
	for _, rec := range records {
		info.Entities[rec.handleIndex] = EntityInfo{
			Entity:      Entity(rec.index + 1),
			Name:        rec.name,
			Descendants: int(rec.childCount),
			Position:    rec.position,
			Rotation:    rec.rotation,
			Scale:       rec.scale,
			SystemFlags: rec.system,
			UserFlags:   rec.user,
		}
		counts[rec.handleIndex] = int(rec.childCount)
	}
	err = walkPreorder(counts, func(pos, parentPos, depth int) {
		info.Entities[pos].Depth = depth
		if parentPos >= 0 {
			info.Entities[pos].Parent = info.Entities[parentPos].Entity
		}
	})
	if err != nil {
		return SceneInfo{}, err
	}
	return info, nil
}

// WriteYAML dumps the summary as a YAML document.
func (info SceneInfo) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(info); err != nil {
		return err
	}
	return enc.Close()
}
