package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tablecloth/internal/engine"
	"github.com/DoyleJ11/tablecloth/internal/hub"
	"github.com/DoyleJ11/tablecloth/internal/roster"
	"github.com/DoyleJ11/tablecloth/internal/run"
	"github.com/DoyleJ11/tablecloth/internal/types"
	wire "github.com/DoyleJ11/tablecloth/pkg/types"
)

var errMissingSeat = errors.New("seat needs a team_id or a player")

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Status(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.Status, 1)
		st, err := hub.Ask(r.Context(), h, hub.GetStatus{Reply: reply}, reply)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wire.Status{
			ActiveRun:  st.ActiveRun,
			Teams:      st.Teams,
			Width:      st.CanvasSize.X,
			Height:     st.CanvasSize.Y,
			Background: st.Background,
		})
	}
}

func Teams(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams := store.Teams()
		out := make([]wire.Team, len(teams))
		for i, t := range teams {
			out[i] = wire.Team{ID: t.ID, Name: t.Name, Players: t.Players}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func SearchPlayer(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.FindPlayer(r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromPlayer(p))
	}
}

func CreateGeneration(h *hub.Hub, store *roster.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.GenerateRequest
		if !decode(w, r, &req) {
			return
		}

		seats, err := resolveSeats(store, req)
		if errors.Is(err, errMissingSeat) {
			writeBadRequest(w, err)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}

		reply := make(chan hub.StartResult, 1)
		res, err := hub.Ask(r.Context(), h, hub.StartRun{
			Request: hub.Request{
				Seats:          seats,
				TechnicalLines: req.TechnicalLines,
				Destination:    req.Destination,
			},
			Reply: reply,
		}, reply)
		if err != nil {
			writeError(w, err)
			return
		}
		if res.Err != nil {
			writeError(w, res.Err)
			return
		}

		log.Debug("generation accepted", zap.String("run", res.Run.ID()))
		writeJSON(w, http.StatusAccepted, wire.GenerateResponse{
			ID:          res.Run.ID(),
			Destination: res.Destination,
		})
	}
}

func GetGeneration(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		reply := make(chan *run.Run, 1)
		lr, err := hub.Ask(r.Context(), h, hub.GetRun{ID: id, Reply: reply}, reply)
		if err != nil {
			writeError(w, err)
			return
		}
		if lr == nil {
			writeError(w, fmt.Errorf("%w: %s", types.ErrRunNotFound, id))
			return
		}

		view, err := viewOf(r.Context(), lr)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %s", types.ErrRunNotFound, id))
			return
		}
		writeJSON(w, http.StatusOK, wire.RunView{
			ID:     view.ID,
			Done:   view.Done,
			Events: types.FromEvents(view.ID, view.Events),
		})
	}
}

func SetBackground(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.BackgroundRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Path == "" {
			writeBadRequest(w, errors.New("path is required"))
			return
		}

		reply := make(chan hub.BackgroundResult, 1)
		res, err := hub.Ask(r.Context(), h, hub.SetBackground{Path: req.Path, Reply: reply}, reply)
		if err != nil {
			writeError(w, err)
			return
		}
		if res.Err != nil {
			log.Info("background rejected", zap.String("path", req.Path), zap.Error(res.Err))
			writeError(w, res.Err)
			return
		}

		size := res.Override.Image.Bounds().Size()
		writeJSON(w, http.StatusOK, wire.BackgroundResponse{
			Path:   res.Override.Path,
			Width:  size.X,
			Height: size.Y,
		})
	}
}

func ClearBackground(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan error, 1)
		cleared, err := hub.Ask(r.Context(), h, hub.ClearBackground{Reply: reply}, reply)
		if err == nil {
			err = cleared
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func resolveSeats(store *roster.Store, req wire.GenerateRequest) (engine.SeatAssignment, error) {
	selections := []struct {
		seat engine.Seat
		sel  wire.SeatSelection
	}{
		{engine.SeatEast, req.East},
		{engine.SeatSouth, req.South},
		{engine.SeatWest, req.West},
		{engine.SeatNorth, req.North},
	}

	var seats engine.SeatAssignment
	for _, s := range selections {
		seat, sel := s.seat, s.sel
		team := sel.TeamID
		if team == 0 {
			if sel.Player == "" {
				return seats, fmt.Errorf("%s: %w", seat, errMissingSeat)
			}
			id, err := store.PlayerTeam(sel.Player)
			if err != nil {
				return seats, fmt.Errorf("%s seat: %w", seat, err)
			}
			team = id
		}
		seats.Set(seat, team)
	}
	return seats, nil
}

func viewOf(ctx context.Context, lr *run.Run) (run.View, error) {
	reply := make(chan run.View, 1)
	select {
	case lr.Inbox() <- run.GetState{Reply: reply}:
	case <-lr.Context().Done():
		return run.View{}, lr.Context().Err()
	case <-ctx.Done():
		return run.View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-lr.Context().Done():
		return run.View{}, lr.Context().Err()
	case <-ctx.Done():
		return run.View{}, ctx.Err()
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, fmt.Errorf("bad json: %w", err))
		return false
	}
	return true
}

func statusOf(kind string) int {
	switch kind {
	case types.KindBadRequest:
		return http.StatusBadRequest
	case types.KindPlayerNotFound, types.KindRunNotFound:
		return http.StatusNotFound
	case types.KindRunInFlight:
		return http.StatusConflict
	case types.KindUnreadableImage, types.KindUnknownTeam, types.KindBadDestination:
		return http.StatusUnprocessableEntity
	case types.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := types.ErrorKind(err)
	writeJSON(w, statusOf(kind), wire.ErrorBody{Kind: kind, Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, wire.ErrorBody{Kind: types.KindBadRequest, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
