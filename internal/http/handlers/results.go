package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"chronobooth/internal/compositor"
	"chronobooth/internal/domain"
	"chronobooth/pkg/zip"
)

func attachment(w http.ResponseWriter, name, mime string, data []byte) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ResultImage downloads the result, re-encoded when ?format= asks for png
// or webp.
func (a *App) ResultImage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	format, err := compositor.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	result := s.Result()
	if result == nil {
		a.fail(w, r, domain.ErrNoResult)
		return
	}
	data, err := compositor.Transcode(result.Data, result.MIME, format)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	attachment(w, a.Controller.DownloadName(s, format.Ext()), format.MIME(), data)
}

func (a *App) ResultVideo(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	video := s.Video()
	if video == nil {
		a.error(w, http.StatusNotFound, "no_video", "no video generated")
		return
	}
	attachment(w, a.Controller.DownloadName(s, videoExt(video.MIME)), video.MIME, video.Data)
}

// ResultBundle zips the result image with the video and analysis, if any.
func (a *App) ResultBundle(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	result := s.Result()
	if result == nil {
		a.fail(w, r, domain.ErrNoResult)
		return
	}
	assets := []zip.Asset{{Filename: "result." + imageExt(result.MIME), MIME: result.MIME, Data: result.Data}}
	if v := s.Video(); v != nil {
		assets = append(assets, zip.Asset{Filename: "video." + videoExt(v.MIME), MIME: v.MIME, Data: v.Data})
	}
	if text := s.Analysis(); text != "" {
		assets = append(assets, zip.Asset{Filename: "analysis.txt", MIME: "text/plain", Data: []byte(text)})
	}
	data, err := zip.ArchiveAssets(assets, time.Now())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	attachment(w, a.Controller.DownloadName(s, "zip"), "application/zip", data)
}

func imageExt(mime string) string {
	f, err := compositor.ParseFormat(strings.TrimPrefix(mime, "image/"))
	if err != nil {
		return "img"
	}
	return f.Ext()
}

func videoExt(mime string) string {
	switch {
	case strings.Contains(mime, "webm"):
		return "webm"
	case mime == "image/gif":
		return "gif"
	default:
		return "mp4"
	}
}

func (a *App) SharePayload(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	payload, err := a.Controller.Share(s)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, payload)
}

type shareOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=shared cancelled failed unsupported"`
}

// ShareOutcome records how the native share sheet closed. An unsupported
// sheet answers with the download location the client should fall back to.
func (a *App) ShareOutcome(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req shareOutcomeRequest
	if !a.decode(w, r, &req) {
		return
	}
	outcome := domain.ShareOutcome(req.Outcome)
	if err := a.Controller.ReportShare(s, outcome); err != nil {
		a.fail(w, r, err)
		return
	}
	if outcome == domain.ShareUnsupported {
		a.json(w, http.StatusOK, map[string]string{
			"fallback": "download",
			"href":     "/v1/sessions/" + s.ID + "/result/image",
		})
		return
	}
	a.snapshot(w, r, http.StatusOK, s)
}
