package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"chronobooth/internal/middleware"
)

type denyCameraRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

// StartCamera begins waiting for the browser's feed. The session's camera
// state moves to STREAMING once /camera/stream attaches, or to ERROR on
// denial or timeout.
func (a *App) StartCamera(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	log := a.Logger.With().
		Str("session_id", s.ID).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Logger()
	s.Feed().Expect()
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := a.Controller.StartCamera(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug().Err(err).Msg("camera start ended")
		}
	}()
	a.snapshot(w, r, http.StatusAccepted, s)
}

// DenyCamera reports that the browser refused camera access.
func (a *App) DenyCamera(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req denyCameraRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := s.Feed().Deny(req.Reason); err != nil {
		a.error(w, http.StatusConflict, "camera_not_starting", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CameraStream upgrades to a WebSocket over which the browser pushes encoded
// frames as binary messages.
func (a *App) CameraStream(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := s.Feed().Attach(conn); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		_ = conn.Close()
		return
	}
	a.Logger.Debug().Str("session_id", s.ID).Msg("camera feed attached")
}

// CaptureCamera freezes the latest frame as the subject photo.
func (a *App) CaptureCamera(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	if err := a.Controller.CaptureCamera(r.Context(), s); err != nil {
		a.fail(w, r, err)
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}

func (a *App) CancelCamera(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	a.Controller.CancelCamera(s)
	a.snapshot(w, r, http.StatusOK, s)
}
