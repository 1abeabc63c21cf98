package assets

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/lagoon/internal/config"
	"github.com/Versifine/lagoon/internal/logger"
	"github.com/Versifine/lagoon/internal/scene"
)

// Chunk is one loaded island piece. Min and Max bound its ground slab.
type Chunk struct {
	Name  string
	Min   mgl64.Vec3
	Max   mgl64.Vec3
	Group *scene.Group
}

// Loader turns chunk configs into scene nodes attached under root.
type Loader struct {
	root   *scene.Group
	chunks []Chunk
	log    *slog.Logger
}

func NewLoader(root *scene.Group) *Loader {
	return &Loader{root: root, log: logger.Component("assets")}
}

// LoadIslandChunks builds one group per chunk, each holding a box mesh whose
// top face is centred on the chunk position. Chunks loaded before an error
// stay attached.
func (l *Loader) LoadIslandChunks(ctx context.Context, chunks []config.ChunkConfig) ([]*scene.Group, error) {
	if l.root == nil {
		return nil, fmt.Errorf("loader has no scene root")
	}
	groups := make([]*scene.Group, 0, len(chunks))
	for i, cfg := range chunks {
		if err := ctx.Err(); err != nil {
			return groups, fmt.Errorf("load chunks: %w", err)
		}
		chunk, err := buildChunk(cfg)
		if err != nil {
			return groups, fmt.Errorf("chunk %d: %w", i, err)
		}
		l.root.Add(chunk.Group)
		l.chunks = append(l.chunks, chunk)
		groups = append(groups, chunk.Group)
		l.log.Debug("Loaded island chunk", "name", chunk.Name, "min", chunk.Min, "max", chunk.Max)
	}
	l.log.Info("Island loaded", "chunks", len(groups))
	return groups, nil
}

// LoadedMeshes returns every chunk loaded so far, in load order.
func (l *Loader) LoadedMeshes() []Chunk {
	return append([]Chunk(nil), l.chunks...)
}

func buildChunk(cfg config.ChunkConfig) (Chunk, error) {
	if cfg.Name == "" {
		return Chunk{}, fmt.Errorf("chunk name is empty")
	}
	for axis, v := range cfg.Size {
		if !(v > 0) || math.IsInf(v, 0) {
			return Chunk{}, fmt.Errorf("chunk %q: size[%d]=%v must be positive", cfg.Name, axis, v)
		}
	}
	pos := mgl64.Vec3(cfg.Position)
	half := mgl64.Vec3{cfg.Size[0] / 2, 0, cfg.Size[2] / 2}
	min := mgl64.Vec3{pos[0] - half[0], pos[1] - cfg.Size[1], pos[2] - half[2]}
	max := mgl64.Vec3{pos[0] + half[0], pos[1], pos[2] + half[2]}

	ground := scene.NewBox(cfg.Name+"/ground", min, max)
	return Chunk{
		Name:  cfg.Name,
		Min:   min,
		Max:   max,
		Group: scene.NewGroup(cfg.Name, ground),
	}, nil
}
