package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/form"
	"github.com/claude/mapty/internal/render"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type sessionResponse struct {
	session.State
	Map     config.MapConfig `json:"map"`
	Message string           `json:"message,omitempty"`
}

// positionRequest is either a geolocation fix or the reason there is none.
type positionRequest struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, http.StatusOK)
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, status int) {
	st, err := s.session.State(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	resp := sessionResponse{State: st, Map: s.mapCfg}
	resp.Map.Zoom = st.Zoom
	if st.PositionError != "" {
		resp.Message = session.LocationUnavailableMessage
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	kind := workout.KindRunning
	if t := r.URL.Query().Get("type"); t != "" {
		var err error
		if kind, err = workout.ParseKind(t); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, form.Fields(kind))
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}

	switch {
	case req.Error != "":
		s.session.PositionUnavailable(req.Error)
	case req.Lat == nil || req.Lng == nil:
		writeError(w, http.StatusBadRequest, "bad_request", "lat and lng are required")
		return
	default:
		if err := s.session.SetPosition(workout.Coordinates{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
			s.writeSessionError(w, err)
			return
		}
	}
	s.writeState(w, r, http.StatusOK)
}

func (s *Server) handlePoint(w http.ResponseWriter, r *http.Request) {
	var c workout.Coordinates
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}
	if err := s.session.SelectPoint(c); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeState(w, r, http.StatusOK)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var in form.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}

	view, err := s.session.Submit(r.Context(), in)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.log.Info("workout logged", "user", userInfoFromContext(r).Login, "id", view.Workout.ID)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	ws, err := s.session.Workouts(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, render.ForAll(ws))
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid workout id")
		return
	}

	wo, err := s.session.Workout(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	}
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, render.For(wo))
}

// writeSessionError maps session errors to HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  session.InvalidInputMessage,
			"code":   "invalid_input",
			"detail": err.Error(),
		})
	case errors.Is(err, session.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, "invalid_coordinates", err.Error())
	case errors.Is(err, session.ErrLocationUnavailable):
		writeError(w, http.StatusConflict, "location_unavailable", session.LocationUnavailableMessage)
	case errors.Is(err, session.ErrNoPointSelected):
		writeError(w, http.StatusConflict, "no_point_selected", "select a point on the map first")
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, "session_closed", "session has ended")
	default:
		s.log.Error("session error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
