package worker

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tablecloth/internal/engine"
)

// OutputName is the file every run writes into its destination directory.
const OutputName = "Table_Dif.jpg"

const DefaultQuality = 95

type Milestone int

const (
	MilestoneStacked       Milestone = 10
	MilestoneSeatsResolved Milestone = 40
	MilestoneCleared       Milestone = 50
	MilestoneComposited    Milestone = 75
	MilestoneWritten       Milestone = 90
	MilestoneVerified      Milestone = 100
)

// Milestones lists every progress value of a successful run, in order.
var Milestones = []Milestone{
	MilestoneStacked,
	MilestoneSeatsResolved,
	MilestoneCleared,
	MilestoneComposited,
	MilestoneWritten,
	MilestoneVerified,
}

type EventKind string

const (
	EventProgress  EventKind = "Progress"
	EventCompleted EventKind = "Completed"
	EventFailed    EventKind = "Failed"
)

type Event struct {
	Kind     EventKind
	Progress Milestone
	Path     string
	Err      error
}

func (e Event) Terminal() bool { return e.Kind == EventCompleted || e.Kind == EventFailed }

type WriteVerificationError struct {
	Path string
	Err  error
}

func (e *WriteVerificationError) Error() string {
	return fmt.Sprintf("output %q missing after write: %v", e.Path, e.Err)
}

func (e *WriteVerificationError) Unwrap() error { return e.Err }

// Inputs is everything a run reads. The layer buffers are shared with the
// loaded asset and are only read.
type Inputs struct {
	Base           engine.BaseLayers
	Groups         engine.TeamGroups
	Seats          engine.SeatAssignment
	Override       *image.NRGBA
	TechnicalLines bool
}

type Worker struct {
	quality int
	log     *zap.Logger
	verify  func(path string) error
}

func New(quality int, log *zap.Logger) *Worker {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Worker{quality: quality, log: log, verify: regularFile}
}

// Run renders one tablecloth into dir. Progress milestones go to events in
// increasing order followed by exactly one Completed or Failed event, after
// which events is closed. Sends block, so the caller must keep draining
// events until it is closed.
func (w *Worker) Run(in Inputs, dir string, events chan<- Event) {
	defer close(events)

	start := time.Now()
	path, err := w.run(in, dir, events)
	if err != nil {
		w.log.Warn("generation failed", zap.String("dir", dir), zap.Error(err))
		events <- Event{Kind: EventFailed, Err: err}
		return
	}

	w.log.Info("tablecloth generated",
		zap.String("path", path),
		zap.Duration("took", time.Since(start)),
	)
	events <- Event{Kind: EventCompleted, Path: path}
}

func (w *Worker) run(in Inputs, dir string, events chan<- Event) (string, error) {
	progress := func(m Milestone) {
		events <- Event{Kind: EventProgress, Progress: m}
	}

	stack := engine.BaseStack(in.Base, in.Override, in.TechnicalLines)
	progress(MilestoneStacked)

	seatLayers, err := engine.SeatLayers(in.Groups, in.Seats)
	if err != nil {
		return "", fmt.Errorf("resolve seats: %w", err)
	}
	stack = append(stack, seatLayers...)
	progress(MilestoneSeatsResolved)

	path := filepath.Join(dir, OutputName)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("clear previous output: %w", err)
	}
	progress(MilestoneCleared)

	canvas, err := engine.Flatten(stack)
	if err != nil {
		return "", fmt.Errorf("composite: %w", err)
	}
	progress(MilestoneComposited)

	if err := w.write(path, canvas); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	progress(MilestoneWritten)

	if err := w.verify(path); err != nil {
		return "", &WriteVerificationError{Path: path, Err: err}
	}
	progress(MilestoneVerified)

	return path, nil
}

// write encodes img next to path and renames it into place, so a failed
// encode never leaves a partial file under the output name.
func (w *Worker) write(path string, img image.Image) (err error) {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Cleanup()) }()

	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(w.quality)); err != nil {
		return err
	}
	return f.CloseAtomicallyReplace()
}

func regularFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}
