package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chronobooth/internal/http/handlers"
	mw "chronobooth/internal/middleware"
)

type Options struct {
	AllowedOrigins  []string
	DefaultLocale   string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		mw.Logger(app.Logger),
		mw.CORS(opts.AllowedOrigins),
		mw.I18N(opts.DefaultLocale),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/eras", app.Eras)

	r.Route("/v1/sessions", func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(mw.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		r.Post("/", app.CreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetSession)
			r.Delete("/", app.DeleteSession)
			r.Post("/upload", app.Upload)
			r.Delete("/message", app.DismissMessage)

			r.Route("/camera", func(r chi.Router) {
				r.Post("/start", app.StartCamera)
				r.Post("/deny", app.DenyCamera)
				r.Get("/stream", app.CameraStream)
				r.Post("/capture", app.CaptureCamera)
				r.Post("/cancel", app.CancelCamera)
			})

			r.Patch("/transform", app.UpdateTransform)
			r.Post("/transform/autofit", app.Autofit)
			r.Get("/frame", app.Frame)
			r.Put("/era", app.SelectEra)

			r.Post("/travel", app.Travel)
			r.Post("/animate", app.Animate)
			r.Post("/edit", app.Edit)
			r.Post("/analyze", app.Analyze)
			r.Post("/back", app.Back)
			r.Post("/reset", app.Reset)

			r.Get("/result/image", app.ResultImage)
			r.Get("/result/video", app.ResultVideo)
			r.Get("/result/bundle", app.ResultBundle)
			r.Get("/share", app.SharePayload)
			r.Post("/share", app.ShareOutcome)
		})
	})

	return r
}
