package handlers

import (
	"errors"
	"net/http"
	"strings"

	"chronobooth/internal/middleware"
)

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := a.Store.Create()
	a.Logger.Info().
		Str("session_id", s.ID).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("session created")
	w.Header().Set("Location", "/v1/sessions/"+s.ID)
	a.snapshot(w, r, http.StatusCreated, s)
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	if err := a.Store.Delete(s.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload accepts the photo as a multipart "file" field or as a raw image
// body. A request without a file leaves the session untouched.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	body := http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+(1<<20))
	r.Body = body

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, ferr := r.FormFile("file")
		switch {
		case errors.Is(ferr, http.ErrMissingFile):
			err = a.Controller.Upload(r.Context(), s, nil, a.MaxUploadBytes)
		case ferr != nil:
			a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
			return
		default:
			defer file.Close()
			err = a.Controller.Upload(r.Context(), s, file, a.MaxUploadBytes)
		}
	} else {
		err = a.Controller.Upload(r.Context(), s, body, a.MaxUploadBytes)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}

// DismissMessage clears the session's user-visible message.
func (a *App) DismissMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	a.Controller.DismissMessage(s)
	a.snapshot(w, r, http.StatusOK, s)
}

func (a *App) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	if err := a.Controller.BackToEditor(s); err != nil {
		a.fail(w, r, err)
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}

// Reset starts over from the upload screen.
func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	a.Controller.StartOver(s)
	a.snapshot(w, r, http.StatusOK, s)
}
