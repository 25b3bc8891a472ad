// Package background manages the optional image that replaces the mat layer.
package background

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

// FileName is the canonical name of the persisted override.
const FileName = "mat_bg.png"

type UnreadableImageError struct {
	Path string
	Err  error
}

func (e *UnreadableImageError) Error() string {
	return fmt.Sprintf("unreadable background image %q: %v", e.Path, e.Err)
}

func (e *UnreadableImageError) Unwrap() error { return e.Err }

type Override struct {
	Path  string
	Image *image.NRGBA
}

// Manager holds the current override. It is owned by a single goroutine and
// is not safe for concurrent use.
type Manager struct {
	size        image.Point
	saveDir     string
	fallbackDir string
	current     *Override
	log         *zap.Logger
}

// NewManager returns a manager that normalizes overrides to size and writes
// them under fallbackDir until a save directory is set.
func NewManager(size image.Point, fallbackDir string, log *zap.Logger) *Manager {
	return &Manager{size: size, fallbackDir: fallbackDir, log: log}
}

func (m *Manager) Size() image.Point { return m.size }

func (m *Manager) SetSaveDir(dir string) { m.saveDir = dir }

// Current returns the active override, or nil when the mat layer is in use.
func (m *Manager) Current() *Override { return m.current }

func (m *Manager) Clear() { m.current = nil }

// Image returns the override image, or nil.
func (m *Manager) Image() *image.NRGBA {
	if m.current == nil {
		return nil
	}
	return m.current.Image
}

// Set decodes the image at path, normalizes it, persists it under the
// canonical file name and makes it the active override. On error the
// previous override stays in place.
func (m *Manager) Set(path string) (*Override, error) {
	img, err := m.decode(path)
	if err != nil {
		return nil, err
	}

	dest := filepath.Join(m.dir(), FileName)
	if err := writePNG(dest, img); err != nil {
		return nil, fmt.Errorf("persist background: %w", err)
	}

	m.current = &Override{Path: dest, Image: img}
	m.log.Info("background override set",
		zap.String("source", path),
		zap.String("path", dest),
	)
	return m.current, nil
}

// Restore reloads an override persisted by an earlier process without
// rewriting it.
func (m *Manager) Restore(path string) (*Override, error) {
	img, err := m.decode(path)
	if err != nil {
		return nil, err
	}
	m.current = &Override{Path: path, Image: img}
	m.log.Info("background override restored", zap.String("path", path))
	return m.current, nil
}

func (m *Manager) decode(path string) (*image.NRGBA, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, &UnreadableImageError{Path: path, Err: err}
	}
	return Normalize(src, m.size), nil
}

func (m *Manager) dir() string {
	if m.saveDir != "" {
		return m.saveDir
	}
	return m.fallbackDir
}

// Normalize stretches img to exactly size, ignoring aspect ratio, and returns
// it with an alpha channel. Sources without alpha come out fully opaque.
func Normalize(img image.Image, size image.Point) *image.NRGBA {
	if img.Bounds().Size() != size {
		return imaging.Resize(img, size.X, size.Y, imaging.Lanczos)
	}
	return imaging.Clone(img)
}

func writePNG(path string, img image.Image) error {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer f.Cleanup()

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		return err
	}
	return f.CloseAtomicallyReplace()
}
