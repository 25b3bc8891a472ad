// Package asset reads and writes layer bundles: a directory holding a
// manifest.json that lists the document's layers in order, one PNG per layer.
package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/tablecloth/internal/engine"
)

const ManifestName = "manifest.json"

var ErrEmptyManifest = errors.New("manifest lists no layers")

type Manifest struct {
	Layers []ManifestLayer `json:"layers"`
}

type ManifestLayer struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// ReadManifest decodes dir/manifest.json.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	if len(m.Layers) == 0 {
		return m, ErrEmptyManifest
	}
	for i, l := range m.Layers {
		if l.File == "" {
			return m, fmt.Errorf("manifest layer %d: missing file", i)
		}
	}
	return m, nil
}

// Load decodes every layer of the bundle in dir, at most workers at a time.
// The returned layers keep manifest order.
func Load(ctx context.Context, dir string, workers int, log *zap.Logger) ([]engine.Layer, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	layers := make([]engine.Layer, len(m.Layers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	for i, ml := range m.Layers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := imaging.Open(filepath.Join(dir, ml.File))
			if err != nil {
				return fmt.Errorf("layer %d (%s): %w", i, ml.File, err)
			}
			name := ml.Name
			if name == "" {
				name = strings.TrimSuffix(ml.File, filepath.Ext(ml.File))
			}
			layers[i] = engine.NewLayer(name, img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("layer bundle loaded",
		zap.String("dir", dir),
		zap.Int("layers", len(layers)),
	)
	return layers, nil
}

// Write stores layers as a bundle in dir, creating it if needed.
func Write(dir string, layers []engine.Layer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	m := Manifest{Layers: make([]ManifestLayer, len(layers))}
	for i, l := range layers {
		file := fmt.Sprintf("%03d.png", i)
		if err := imaging.Save(l.Image, filepath.Join(dir, file)); err != nil {
			return fmt.Errorf("write layer %d: %w", i, err)
		}
		m.Layers[i] = ManifestLayer{Name: l.Name, File: file}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644)
}
