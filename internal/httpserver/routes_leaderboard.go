// internal/httpserver/routes_leaderboard.go
//
// HTTP routes for the global leaderboard.
//   - GET  /leaderboard      → top 10 entries, highest score first
//   - POST /leaderboard      → validate and store a submission
//   - GET  /leaderboard/live → websocket; pushes the top 10 on connect and
//     after every accepted submission
//
// A logged-in player always submits under their account name.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/patternrush/internal/leaderboard"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	// The feed is read-only public data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// mountLeaderboard registers GET and POST on path.
func (s *Server) mountLeaderboard(r chi.Router, path string) {
	r.With(s.readLimit.Middleware).Get(path, s.handleTop)
	r.With(s.submitLimit.Middleware).Post(path, s.handleSubmit)
}

// invalidRes is the 400 body for a rejected submission.
type invalidRes struct {
	Message string                   `json:"message"`
	Errors  []leaderboard.FieldError `json:"errors"`
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	top, err := s.entries.Top(r.Context(), leaderboard.TopN)
	if err != nil {
		log.Error().Err(err).Msg("read leaderboard")
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub leaderboard.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, invalidRes{
			Message: "Invalid data",
			Errors:  []leaderboard.FieldError{{Field: "body", Message: "malformed JSON"}},
		})
		return
	}
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		sub.PlayerName = me.Username
	}

	clean, err := sub.Validate()
	if err != nil {
		var ve *leaderboard.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, invalidRes{Message: "Invalid data", Errors: ve.Fields})
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid data")
		return
	}

	entry, err := s.entries.Add(r.Context(), clean)
	if err != nil {
		log.Error().Err(err).Msg("add leaderboard entry")
		writeMessage(w, http.StatusInternalServerError, "Failed to add leaderboard entry")
		return
	}
	log.Info().Int64("id", entry.ID).Str("player", entry.PlayerName).Int("score", entry.Score).Msg("score submitted")
	writeJSON(w, http.StatusCreated, entry)

	s.broadcast(r)
}

// broadcast pushes the current top entries to live subscribers.
func (s *Server) broadcast(r *http.Request) {
	if s.hub.Subscribers() == 0 {
		return
	}
	top, err := s.entries.Top(r.Context(), leaderboard.TopN)
	if err != nil {
		log.Warn().Err(err).Msg("broadcast leaderboard")
		return
	}
	s.hub.Publish(top)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	// Subscribe before reading so no submission slips between the initial
	// snapshot and the first update.
	updates, cancel := s.hub.Subscribe()
	defer cancel()

	top, err := s.entries.Top(r.Context(), leaderboard.TopN)
	if err != nil {
		log.Error().Err(err).Msg("read leaderboard")
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("upgrade websocket")
		return
	}
	defer ws.Close()
	log.Debug().Str("remote", r.RemoteAddr).Msg("live feed connected")

	// Reader: only control frames are expected; any error ends the feed.
	done := make(chan struct{})
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(livePongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	send := func(v []leaderboard.Entry) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := ws.WriteJSON(v); err != nil {
			log.Debug().Err(err).Msg("live feed write")
			return false
		}
		return true
	}
	if !send(top) {
		return
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok || !send(snap) {
				return
			}
		case <-ping.C:
			_ = ws.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
