package hub

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tablecloth/internal/background"
	"github.com/DoyleJ11/tablecloth/internal/engine"
	"github.com/DoyleJ11/tablecloth/internal/roster"
	"github.com/DoyleJ11/tablecloth/internal/run"
	"github.com/DoyleJ11/tablecloth/internal/worker"
)

var (
	ErrRunInFlight = errors.New("a generation run is already in progress")
	ErrHubClosed   = errors.New("hub is shut down")
)

// DestinationError reports a requested output directory that cannot be used.
type DestinationError struct {
	Path string
	Err  error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("destination %q is not a usable directory: %v", e.Path, e.Err)
}

func (e *DestinationError) Unwrap() error { return e.Err }

// maxRetainedRuns caps how many run logs stay queryable.
const maxRetainedRuns = 32

type HubMsg interface{ isHubMsg() }

type Request struct {
	Seats          engine.SeatAssignment
	TechnicalLines bool
	Destination    string // empty: the saved route, then the fallback dir
}

type StartResult struct {
	Run         *run.Run
	Destination string
	Err         error
}

type StartRun struct {
	Request Request
	Reply   chan StartResult
}

type GetRun struct {
	ID    string
	Reply chan *run.Run
}

type BackgroundResult struct {
	Override *background.Override
	Err      error
}

type SetBackground struct {
	Path  string
	Reply chan BackgroundResult
}

type ClearBackground struct {
	Reply chan error
}

type Status struct {
	ActiveRun  string
	Teams      []int
	CanvasSize image.Point
	Background string
}

type GetStatus struct {
	Reply chan Status
}

type ShutdownHub struct{}

type runFinished struct {
	ID string
}

func (StartRun) isHubMsg()        {}
func (GetRun) isHubMsg()          {}
func (SetBackground) isHubMsg()   {}
func (ClearBackground) isHubMsg() {}
func (GetStatus) isHubMsg()       {}
func (ShutdownHub) isHubMsg()     {}
func (runFinished) isHubMsg()     {}

// Runner executes one generation run; *worker.Worker is the real one.
type Runner interface {
	Run(in worker.Inputs, dir string, events chan<- worker.Event)
}

// Deps is what the hub takes ownership of. Base and Groups are read-only from
// here on; Background is only touched from the hub goroutine.
type Deps struct {
	Base        engine.BaseLayers
	Groups      engine.TeamGroups
	Background  *background.Manager
	Roster      *roster.Store
	Worker      Runner
	FallbackDir string
	Log         *zap.Logger
}

type Hub struct {
	inbox  chan HubMsg
	runs   map[string]*run.Run
	order  []string
	active string
	deps   Deps
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		runs:   make(map[string]*run.Run),
		deps:   deps,
		log:    deps.Log,
		ctx:    ctx,
		cancel: cancel,
	}
	if dir := deps.Roster.SaveRoute(); dir != "" {
		deps.Background.SetSaveDir(dir)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has stopped serving messages.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Ask sends msg and waits for its answer on reply. It gives up with
// ErrHubClosed once the hub stops, or with ctx's error.
func Ask[T any](ctx context.Context, h *Hub, msg HubMsg, reply <-chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.Done():
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.Done():
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrHubClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case StartRun:
				msg.Reply <- h.start(msg.Request)

			case GetRun:
				msg.Reply <- h.runs[msg.ID] // May be nil

			case SetBackground:
				if h.active != "" {
					msg.Reply <- BackgroundResult{Err: ErrRunInFlight}
					break
				}
				o, err := h.deps.Background.Set(msg.Path)
				if err != nil {
					msg.Reply <- BackgroundResult{Err: err}
					break
				}
				if err := h.deps.Roster.SetImageRoute(o.Path); err != nil {
					h.log.Warn("could not remember background", zap.Error(err))
				}
				msg.Reply <- BackgroundResult{Override: o}

			case ClearBackground:
				if h.active != "" {
					msg.Reply <- ErrRunInFlight
					break
				}
				h.deps.Background.Clear()
				if err := h.deps.Roster.SetImageRoute(""); err != nil {
					h.log.Warn("could not forget background", zap.Error(err))
				}
				msg.Reply <- nil

			case GetStatus:
				st := Status{
					ActiveRun:  h.active,
					Teams:      h.deps.Groups.IDs(),
					CanvasSize: h.deps.Background.Size(),
				}
				if o := h.deps.Background.Current(); o != nil {
					st.Background = o.Path
				}
				msg.Reply <- st

			case runFinished:
				if h.active == msg.ID {
					h.active = ""
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) start(req Request) StartResult {
	if h.active != "" {
		return StartResult{Err: ErrRunInFlight}
	}

	dest, err := h.destination(req.Destination)
	if err != nil {
		return StartResult{Err: err}
	}
	id := uuid.NewString()
	r := run.NewRun(h.ctx, id)
	h.register(r)
	h.active = id

	in := worker.Inputs{
		Base:           h.deps.Base,
		Groups:         h.deps.Groups,
		Seats:          req.Seats,
		Override:       h.deps.Background.Image(),
		TechnicalLines: req.TechnicalLines,
	}
	events := make(chan worker.Event, run.MaxEvents)
	go h.deps.Worker.Run(in, dest, events)
	go h.pump(r, events)

	h.log.Info("generation started",
		zap.String("run", id),
		zap.String("dir", dest),
		zap.Int("east", req.Seats.East),
		zap.Int("south", req.Seats.South),
		zap.Int("west", req.Seats.West),
		zap.Int("north", req.Seats.North),
		zap.Bool("technical_lines", req.TechnicalLines),
	)
	return StartResult{Run: r, Destination: dest}
}

// destination picks the run's output directory and remembers a newly chosen
// one, so the next run and the next background land there too. A requested
// directory must already exist.
func (h *Hub) destination(requested string) (string, error) {
	saved := h.deps.Roster.SaveRoute()
	switch {
	case requested == "" && saved != "":
		return saved, nil
	case requested == "":
		return h.deps.FallbackDir, nil
	}

	fi, err := os.Stat(requested)
	if err == nil && !fi.IsDir() {
		err = errors.New("not a directory")
	}
	if err != nil {
		return "", &DestinationError{Path: requested, Err: err}
	}

	if requested != saved {
		if err := h.deps.Roster.SetSaveRoute(requested); err != nil {
			h.log.Warn("could not remember save route", zap.Error(err))
		}
		h.deps.Background.SetSaveDir(requested)
	}
	return requested, nil
}

// pump forwards every worker event to the run log, in order. The hub hears
// about the end of the run before subscribers see the terminal event, so a
// client reacting to Completed can start the next run straight away. It keeps
// draining the worker even if the log is gone.
func (h *Hub) pump(r *run.Run, events <-chan worker.Event) {
	for ev := range events {
		if ev.Terminal() {
			select {
			case h.inbox <- runFinished{ID: r.ID()}:
			case <-h.ctx.Done():
			}
		}
		select {
		case r.Inbox() <- run.Publish{Event: ev}:
		case <-r.Context().Done():
		}
	}
}

func (h *Hub) register(r *run.Run) {
	h.runs[r.ID()] = r
	h.order = append(h.order, r.ID())
	for len(h.order) > maxRetainedRuns {
		oldest := h.order[0]
		h.order = h.order[1:]
		if lr := h.runs[oldest]; lr != nil {
			lr.Inbox() <- run.Shutdown{}
		}
		delete(h.runs, oldest)
	}
}

func (h *Hub) shutdown() {
	for _, r := range h.runs {
		r.Inbox() <- run.Shutdown{}
	}
	clear(h.runs)
	h.order = nil
	h.cancel()
}
