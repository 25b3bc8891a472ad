package run

import (
	"context"
	"slices"

	"github.com/DoyleJ11/tablecloth/internal/worker"
)

// MaxEvents bounds the history of one run: every milestone plus the terminal
// event. Subscriber outboxes of this capacity never miss a replay.
var MaxEvents = len(worker.Milestones) + 1

type Msg interface{ isRunMsg() }

// Publish appends an event from the worker. Publishes are never dropped.
type Publish struct {
	Event worker.Event
}

func (Publish) isRunMsg() {}

type Join struct {
	ClientID string
	Outbox   chan worker.Event // history is replayed here, then live events
}

func (Join) isRunMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRunMsg() {}

type Shutdown struct{}

func (Shutdown) isRunMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRunMsg() {}

type View struct {
	ID         string
	Events     []worker.Event
	Done       bool
	NumClients int
}

type Run struct {
	id      string
	inbox   chan Msg
	events  []worker.Event
	done    bool
	clients map[string]chan worker.Event
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRun(parent context.Context, id string) *Run {
	ctx, cancel := context.WithCancel(parent)

	r := &Run{
		id:      id,
		inbox:   make(chan Msg, 16),
		events:  make([]worker.Event, 0, MaxEvents),
		clients: make(map[string]chan worker.Event),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Run) ID() string { return r.id }

func (r *Run) Inbox() chan<- Msg { return r.inbox }

// Context is cancelled once the run's log has shut down.
func (r *Run) Context() context.Context { return r.ctx }

func (r *Run) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				if !r.replay(msg.Outbox) {
					break
				}
				if r.done {
					// Nothing more will come.
					close(msg.Outbox)
					break
				}
				r.clients[msg.ClientID] = msg.Outbox

			case Leave:
				delete(r.clients, msg.ClientID)

			case Publish:
				r.events = append(r.events, msg.Event)
				r.broadcast(msg.Event)
				if msg.Event.Terminal() {
					r.done = true
					r.closeClients()
				}

			case GetState:
				msg.Reply <- View{
					ID:         r.id,
					Events:     slices.Clone(r.events),
					Done:       r.done,
					NumClients: len(r.clients),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Run) replay(out chan worker.Event) bool {
	for _, ev := range r.events {
		select {
		case out <- ev:
		default:
			close(out)
			return false
		}
	}
	return true
}

func (r *Run) broadcast(ev worker.Event) {
	for id, ch := range r.clients {
		select {
		case ch <- ev:
			// ok
		default:
			// Slow subscriber: drop it, it can re-join for a full replay.
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Run) closeClients() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
}

func (r *Run) shutdown() {
	r.closeClients()
	r.cancel()
}
