package handlers

import (
	"net/http"

	"chronobooth/internal/middleware"
	"chronobooth/internal/session"
)

type editRequest struct {
	Instruction string `json:"instruction" validate:"required,max=2000"`
}

// launch runs a claimed operation. By default it returns 202 immediately and
// clients poll the session; ?wait=true holds the request until it resolves.
func (a *App) launch(w http.ResponseWriter, r *http.Request, s *session.Session, op *session.Op) {
	if r.URL.Query().Get("wait") == "true" {
		_ = op.Run()
		a.snapshot(w, r, http.StatusOK, s)
		return
	}
	rid := middleware.RequestIDFromContext(r.Context())
	go func() {
		if err := op.Run(); err != nil {
			a.Logger.Debug().Err(err).Str("session_id", s.ID).Str("request_id", rid).Msg("background operation ended")
		}
	}()
	a.snapshot(w, r, http.StatusAccepted, s)
}

func (a *App) Travel(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	op, err := a.Controller.PrepareTravel(r.Context(), s)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.launch(w, r, s, op)
}

func (a *App) Animate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	op, err := a.Controller.PrepareAnimate(r.Context(), s)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.launch(w, r, s, op)
}

func (a *App) Edit(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req editRequest
	if !a.decode(w, r, &req) {
		return
	}
	op, err := a.Controller.PrepareEdit(r.Context(), s, req.Instruction)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.launch(w, r, s, op)
}

func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	op, err := a.Controller.PrepareAnalyze(r.Context(), s)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.launch(w, r, s, op)
}
