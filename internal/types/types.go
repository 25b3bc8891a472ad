package types

import (
	"errors"

	"github.com/DoyleJ11/tablecloth/internal/background"
	"github.com/DoyleJ11/tablecloth/internal/engine"
	"github.com/DoyleJ11/tablecloth/internal/hub"
	"github.com/DoyleJ11/tablecloth/internal/roster"
	"github.com/DoyleJ11/tablecloth/internal/worker"
	wire "github.com/DoyleJ11/tablecloth/pkg/types"
)

const (
	KindMalformedAsset    = "MalformedAsset"
	KindUnreadableImage   = "UnreadableImage"
	KindUnknownTeam       = "UnknownTeam"
	KindLayerSizeMismatch = "LayerSizeMismatch"
	KindWriteVerification = "WriteVerification"
	KindRunInFlight       = "RunInFlight"
	KindBadDestination    = "BadDestination"
	KindUnavailable       = "Unavailable"
	KindRunNotFound       = "RunNotFound"
	KindPlayerNotFound    = "PlayerNotFound"
	KindBadRequest        = "BadRequest"
	KindInternal          = "Internal"
)

var ErrRunNotFound = errors.New("run not found")

// ErrorKind names the failure class of err for clients.
func ErrorKind(err error) string {
	var (
		malformed  *engine.MalformedAssetError
		unreadable *background.UnreadableImageError
		unknown    *engine.UnknownTeamError
		mismatch   *engine.LayerSizeMismatchError
		verify     *worker.WriteVerificationError
		dest       *hub.DestinationError
	)
	switch {
	case errors.As(err, &malformed):
		return KindMalformedAsset
	case errors.As(err, &unreadable):
		return KindUnreadableImage
	case errors.As(err, &unknown):
		return KindUnknownTeam
	case errors.As(err, &mismatch):
		return KindLayerSizeMismatch
	case errors.As(err, &verify):
		return KindWriteVerification
	case errors.As(err, &dest):
		return KindBadDestination
	case errors.Is(err, hub.ErrRunInFlight):
		return KindRunInFlight
	case errors.Is(err, hub.ErrHubClosed):
		return KindUnavailable
	case errors.Is(err, ErrRunNotFound):
		return KindRunNotFound
	case errors.Is(err, roster.ErrPlayerNotFound):
		return KindPlayerNotFound
	default:
		return KindInternal
	}
}

func FromEvent(runID string, ev worker.Event) wire.ServerMessage {
	msg := wire.ServerMessage{Type: string(ev.Kind), Run: runID}
	switch ev.Kind {
	case worker.EventProgress:
		msg.Progress = int(ev.Progress)
	case worker.EventCompleted:
		msg.Path = ev.Path
	case worker.EventFailed:
		msg.Kind = ErrorKind(ev.Err)
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
	}
	return msg
}

func FromEvents(runID string, events []worker.Event) []wire.ServerMessage {
	out := make([]wire.ServerMessage, len(events))
	for i, ev := range events {
		out[i] = FromEvent(runID, ev)
	}
	return out
}

func FromPlayer(p roster.Player) wire.Player {
	return wire.Player{Name: p.Name, Team: p.Team, TeamID: p.TeamID}
}
