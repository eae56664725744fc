package handlers

import (
	"net/http"

	"chronobooth/internal/transform"
)

// transformRequest is a single gesture applied to the framing transform.
type transformRequest struct {
	Op     string               `json:"op" validate:"required,oneof=zoom scale pan drag wheel rotate reset set"`
	Value  float64              `json:"value"`
	DX     float64              `json:"dx"`
	DY     float64              `json:"dy"`
	DeltaY float64              `json:"delta_y"`
	Set    *transform.Transform `json:"transform" validate:"required_if=Op set"`
}

func (req transformRequest) apply(t *transform.Transform) {
	switch req.Op {
	case "zoom":
		t.ZoomBy(req.Value)
	case "scale":
		t.SetScale(req.Value)
	case "pan":
		t.PanBy(req.DX, req.DY)
	case "drag":
		t.Drag(req.DX, req.DY)
	case "wheel":
		t.Wheel(req.DeltaY)
	case "rotate":
		t.RotateTo(req.Value)
	case "reset":
		t.Reset()
	case "set":
		*t = transform.Identity()
		t.SetScale(req.Set.Scale)
		t.RotateTo(req.Set.RotationDegrees)
		t.PanBy(req.Set.OffsetX, req.Set.OffsetY)
	}
}

func (a *App) UpdateTransform(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req transformRequest
	if !a.decode(w, r, &req) {
		return
	}
	if _, err := a.Controller.UpdateTransform(s, req.apply); err != nil {
		a.fail(w, r, err)
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}

// Autofit frames the most salient region of the photo.
func (a *App) Autofit(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	if _, err := a.Controller.Autofit(r.Context(), s); err != nil {
		a.fail(w, r, err)
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}

// Frame renders the live preview exactly as it will be submitted.
func (a *App) Frame(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	data, err := a.Controller.Frame(s)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type selectEraRequest struct {
	EraID string `json:"era_id" validate:"required"`
}

func (a *App) SelectEra(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req selectEraRequest
	if !a.decode(w, r, &req) {
		return
	}
	if _, err := a.Controller.SelectEra(s, req.EraID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}
