package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chronobooth/internal/capture"
	"chronobooth/internal/catalog"
	"chronobooth/internal/domain"
	"chronobooth/internal/middleware"
	"chronobooth/internal/session"
)

type App struct {
	Controller     *session.Controller
	Store          *session.Store
	Catalog        *catalog.Catalog
	Logger         zerolog.Logger
	Validate       *validator.Validate
	MaxUploadBytes int64

	upgrader websocket.Upgrader
}

func NewApp(ctrl *session.Controller, store *session.Store, logger zerolog.Logger, maxUploadBytes int64) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = capture.DefaultMaxUploadBytes
	}
	return &App{
		Controller:     ctrl,
		Store:          store,
		Catalog:        ctrl.Catalog(),
		Logger:         logger,
		Validate:       validator.New(validator.WithRequiredStructEnabled()),
		MaxUploadBytes: maxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 10,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	var body errorBody
	body.Error.Code = errCode
	body.Error.Message = message
	a.json(w, code, body)
}

// decode reads a JSON body into dst and validates it.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	if err := a.Validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			a.error(w, http.StatusBadRequest, "invalid_field", verrs[0].Field()+" failed "+verrs[0].Tag())
			return false
		}
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	return true
}

// loadSession loads the session named in the path, writing 404 when absent.
func (a *App) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := a.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	return s, true
}

type sessionResponse struct {
	session.Snapshot
	MessageText string `json:"message_text,omitempty"`
}

func (a *App) snapshot(w http.ResponseWriter, r *http.Request, code int, s *session.Session) {
	snap := s.Snapshot()
	a.json(w, code, sessionResponse{
		Snapshot:    snap,
		MessageText: snap.Message.Text(middleware.LocaleFromContext(r.Context())),
	})
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrBusy, http.StatusConflict, "busy"},
	{domain.ErrWrongStage, http.StatusConflict, "wrong_stage"},
	{domain.ErrNoImage, http.StatusConflict, "no_image"},
	{domain.ErrNoEra, http.StatusConflict, "no_era"},
	{domain.ErrNoResult, http.StatusConflict, "no_result"},
	{domain.ErrNoDirective, http.StatusConflict, "no_directive"},
	{domain.ErrVideoExists, http.StatusConflict, "video_exists"},
	{domain.ErrCameraNotStreaming, http.StatusConflict, "camera_not_streaming"},
	{domain.ErrCameraUnavailable, http.StatusConflict, "camera_unavailable"},
	{domain.ErrUnknownEra, http.StatusBadRequest, "unknown_era"},
	{domain.ErrEmptyInstruction, http.StatusBadRequest, "empty_instruction"},
	{domain.ErrKeyRequired, http.StatusForbidden, "key_required"},
	{domain.ErrUnsupportedImage, http.StatusUnsupportedMediaType, "unsupported_image"},
	{domain.ErrProviderFailure, http.StatusBadGateway, "provider_failure"},
}

// fail maps a domain error onto a status code. Errors that carry a user
// message are rendered in the request locale.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := err.Error()
		switch m.target {
		case domain.ErrKeyRequired:
			msg = domain.MsgKeyRequired.Text(locale)
		case domain.ErrUnsupportedImage:
			msg = domain.MsgUnreadableImage.Text(locale)
		case domain.ErrCameraUnavailable:
			msg = domain.MsgCameraDenied.Text(locale)
		}
		a.error(w, m.status, m.code, msg)
		return
	}
	a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("unhandled error")
	a.error(w, http.StatusInternalServerError, "internal", "internal error")
}
