package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronobooth/internal/capture"
	"chronobooth/internal/catalog"
	"chronobooth/internal/compositor"
	"chronobooth/internal/domain"
	"chronobooth/internal/transform"
)

type fakeGateway struct {
	renders   atomic.Int32
	animates  atomic.Int32
	edits     atomic.Int32
	describes atomic.Int32
	invents   atomic.Int32

	renderErr    error
	renderEmpty  bool
	inventErr    error
	animateErr   error
	editErr      error
	describeErr  error
	gotDirective atomic.Value

	// block, when set, holds RenderSceneWithSubject until closed.
	block   chan struct{}
	entered chan struct{}
}

func (g *fakeGateway) InventScenario(ctx context.Context) (domain.Scenario, error) {
	g.invents.Add(1)
	if g.inventErr != nil {
		return domain.Scenario{}, g.inventErr
	}
	return domain.Scenario{Title: "Atlantis", ShortDescription: "Sunken city", VisualDirective: "walking the streets of Atlantis"}, nil
}

func (g *fakeGateway) RenderSceneWithSubject(ctx context.Context, framed []byte, directive string) (*domain.Media, error) {
	g.renders.Add(1)
	g.gotDirective.Store(directive)
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.renderErr != nil {
		return nil, g.renderErr
	}
	if g.renderEmpty {
		return nil, nil
	}
	return &domain.Media{Data: []byte("rendered:" + directive), MIME: "image/jpeg"}, nil
}

func (g *fakeGateway) AnimateScene(ctx context.Context, img *domain.Media, directive string) (*domain.Media, error) {
	g.animates.Add(1)
	if g.animateErr != nil {
		return nil, g.animateErr
	}
	return &domain.Media{Data: []byte("video"), MIME: "video/mp4"}, nil
}

func (g *fakeGateway) ApplyEdit(ctx context.Context, img *domain.Media, instruction string) (*domain.Media, error) {
	g.edits.Add(1)
	if g.editErr != nil {
		return nil, g.editErr
	}
	return &domain.Media{Data: append([]byte("edited:"), img.Data...), MIME: "image/jpeg"}, nil
}

func (g *fakeGateway) DescribeScene(ctx context.Context, img *domain.Media) (string, error) {
	g.describes.Add(1)
	if g.describeErr != nil {
		return "", g.describeErr
	}
	return "A traveller in time.", nil
}

type keyCheck bool

func (k keyCheck) VideoKeyAvailable() bool { return bool(k) }

func newTestController(gw *fakeGateway, key bool) *Controller {
	return NewController(catalog.Default(), gw, keyCheck(key), 2, zerolog.Nop())
}

func newTestSession() *Session {
	return newSession("s-1", capture.NewFeedDevice(20*time.Millisecond), time.Unix(0, 0))
}

func testRaw() *domain.RawImage {
	img := image.NewRGBA(image.Rect(0, 0, 60, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	return &domain.RawImage{MIME: "image/png", Width: 60, Height: 80, Image: img}
}

// inPreview returns a session with a photo loaded and era selected.
func inPreview(t *testing.T, c *Controller, era string) *Session {
	t.Helper()
	s := newTestSession()
	require.NoError(t, c.LoadImage(s, testRaw()))
	if era != "" {
		_, err := c.SelectEra(s, era)
		require.NoError(t, err)
	}
	return s
}

func inResult(t *testing.T, c *Controller) *Session {
	t.Helper()
	s := inPreview(t, c, "cyberpunk_2077")
	require.NoError(t, c.Travel(context.Background(), s))
	require.Equal(t, domain.StageResult, s.Snapshot().Stage)
	return s
}

func TestLoadImageResetsTransform(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := inPreview(t, c, "")

	_, err := c.UpdateTransform(s, func(tr *transform.Transform) {
		tr.ZoomBy(1)
		tr.PanBy(10, 5)
	})
	require.NoError(t, err)

	require.NoError(t, c.LoadImage(s, testRaw()))
	snap := s.Snapshot()
	assert.Equal(t, transform.Identity(), snap.Transform)
	assert.Equal(t, domain.StagePreview, snap.Stage)
	assert.True(t, snap.HasImage)
}

func TestUploadDismissedPickerIsNoop(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := newTestSession()

	require.NoError(t, c.Upload(context.Background(), s, bytes.NewReader(nil), 0))
	snap := s.Snapshot()
	assert.Equal(t, domain.StageUpload, snap.Stage)
	assert.Empty(t, snap.Message)
}

func TestUploadUnreadableFileSetsMessage(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := newTestSession()

	err := c.Upload(context.Background(), s, bytes.NewReader([]byte("not an image")), 0)
	require.ErrorIs(t, err, domain.ErrUnsupportedImage)
	assert.Equal(t, domain.MsgUnreadableImage, s.Snapshot().Message)
	assert.Equal(t, domain.StageUpload, s.Snapshot().Stage)
}

func TestTravelRequiresEra(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inPreview(t, c, "")

	err := c.Travel(context.Background(), s)
	require.ErrorIs(t, err, domain.ErrNoEra)
	assert.Zero(t, gw.renders.Load())
	assert.Equal(t, domain.StatusIdle, s.Snapshot().Status)
}

func TestTravelSuccessAdvancesToResult(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inPreview(t, c, "cyberpunk_2077")

	require.NoError(t, c.Travel(context.Background(), s))

	era, err := catalog.Default().Lookup("cyberpunk_2077")
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, domain.StageResult, snap.Stage)
	assert.Equal(t, domain.StatusIdle, snap.Status)
	assert.True(t, snap.HasResult)
	assert.Equal(t, era.Directive, gw.gotDirective.Load())
	assert.Equal(t, era.Directive, s.directive)
}

func TestSecondTravelWhileBusyIssuesNoRequest(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inPreview(t, c, "cyberpunk_2077")

	op, err := c.PrepareTravel(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGenerating, s.Snapshot().Status)

	require.ErrorIs(t, c.Travel(context.Background(), s), domain.ErrBusy)
	_, err = c.PrepareAnalyze(context.Background(), s)
	require.Error(t, err)

	require.NoError(t, op.Run())
	assert.EqualValues(t, 1, gw.renders.Load())
}

func TestTravelWithoutImagePartReturnsToIdle(t *testing.T) {
	gw := &fakeGateway{renderErr: errors.New("no image in response")}
	c := newTestController(gw, true)
	s := inPreview(t, c, "cyberpunk_2077")

	require.Error(t, c.Travel(context.Background(), s))
	snap := s.Snapshot()
	assert.Equal(t, domain.StatusIdle, snap.Status)
	assert.Equal(t, domain.StagePreview, snap.Stage)
	assert.Equal(t, domain.MsgTravelFailed, snap.Message)
	assert.False(t, snap.HasResult)
	assert.Nil(t, s.Result())
}

func TestTravelEmptyMediaIsFailure(t *testing.T) {
	gw := &fakeGateway{renderEmpty: true}
	c := newTestController(gw, true)
	s := inPreview(t, c, "cyberpunk_2077")

	require.ErrorIs(t, c.Travel(context.Background(), s), domain.ErrProviderFailure)
	assert.Equal(t, domain.MsgTravelFailed, s.Snapshot().Message)
}

func TestSurpriseTravelUsesInventedScenario(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inPreview(t, c, domain.SurpriseEraID)

	require.NoError(t, c.Travel(context.Background(), s))
	assert.EqualValues(t, 1, gw.invents.Load())
	assert.Equal(t, "walking the streets of Atlantis", gw.gotDirective.Load())
	snap := s.Snapshot()
	require.NotNil(t, snap.Scenario)
	assert.Equal(t, "Atlantis", snap.Scenario.Title)

	payload, err := c.Share(s)
	require.NoError(t, err)
	assert.Contains(t, payload.Text, "trip to Atlantis with ChronoBooth")
}

func TestSurpriseTravelFallsBackOnInventionFailure(t *testing.T) {
	gw := &fakeGateway{inventErr: errors.New("malformed json")}
	c := newTestController(gw, true)
	s := inPreview(t, c, domain.SurpriseEraID)

	require.NoError(t, c.Travel(context.Background(), s))
	assert.Equal(t, domain.FallbackScenario.VisualDirective, gw.gotDirective.Load())
	assert.Equal(t, "The Unknown", s.Snapshot().Scenario.Title)
}

func TestAnimateWithoutResultIsRejected(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inPreview(t, c, "cyberpunk_2077")

	require.ErrorIs(t, c.Animate(context.Background(), s), domain.ErrNoResult)
	assert.Zero(t, gw.animates.Load())
}

func TestAnimateRequiresVideoKey(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, false)
	s := inResult(t, c)

	require.ErrorIs(t, c.Animate(context.Background(), s), domain.ErrKeyRequired)
	snap := s.Snapshot()
	assert.Equal(t, domain.MsgKeyRequired, snap.Message)
	assert.Equal(t, domain.StatusIdle, snap.Status)
	assert.Zero(t, gw.animates.Load())
}

func TestAnimateOnlyOnce(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inResult(t, c)

	require.NoError(t, c.Animate(context.Background(), s))
	assert.True(t, s.Snapshot().HasVideo)
	require.ErrorIs(t, c.Animate(context.Background(), s), domain.ErrVideoExists)
	assert.EqualValues(t, 1, gw.animates.Load())
}

func TestEditAfterVideoMarksVideoStale(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inResult(t, c)
	require.NoError(t, c.Animate(context.Background(), s))
	assert.False(t, s.Snapshot().VideoStale)

	require.NoError(t, c.Edit(context.Background(), s, "  add a retro filter "))
	snap := s.Snapshot()
	assert.True(t, snap.HasVideo)
	assert.True(t, snap.VideoStale)
	assert.True(t, bytes.HasPrefix(s.Result().Data, []byte("edited:")))
}

func TestEditRejectsBlankInstruction(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inResult(t, c)

	require.ErrorIs(t, c.Edit(context.Background(), s, "   "), domain.ErrEmptyInstruction)
	assert.Zero(t, gw.edits.Load())
}

func TestAnalyzeStoresText(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inResult(t, c)

	require.NoError(t, c.Analyze(context.Background(), s))
	snap := s.Snapshot()
	assert.Equal(t, "A traveller in time.", snap.Analysis)
	assert.Equal(t, domain.StageResult, snap.Stage)
}

func TestResultActionFailuresKeepResult(t *testing.T) {
	errUpstream := errors.New("upstream 500")
	cases := []struct {
		name string
		gw   *fakeGateway
		run  func(c *Controller, s *Session) error
		msg  domain.MessageKey
	}{
		{
			name: "animate",
			gw:   &fakeGateway{animateErr: errUpstream},
			run:  func(c *Controller, s *Session) error { return c.Animate(context.Background(), s) },
			msg:  domain.MsgVideoFailed,
		},
		{
			name: "edit",
			gw:   &fakeGateway{editErr: errUpstream},
			run:  func(c *Controller, s *Session) error { return c.Edit(context.Background(), s, "add a hat") },
			msg:  domain.MsgEditFailed,
		},
		{
			name: "analyze",
			gw:   &fakeGateway{describeErr: errUpstream},
			run:  func(c *Controller, s *Session) error { return c.Analyze(context.Background(), s) },
			msg:  domain.MsgAnalyzeFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(tc.gw, true)
			s := inResult(t, c)
			before := append([]byte(nil), s.Result().Data...)
			eraBefore := s.EraID()

			require.Error(t, tc.run(c, s))

			snap := s.Snapshot()
			assert.Equal(t, domain.StatusIdle, snap.Status)
			assert.Equal(t, PhaseNone, snap.Phase)
			assert.Equal(t, tc.msg, snap.Message)
			assert.Equal(t, domain.StageResult, snap.Stage)
			assert.Equal(t, eraBefore, snap.EraID)
			assert.True(t, snap.HasResult)
			assert.False(t, snap.HasVideo)
			assert.Empty(t, snap.Analysis)
			assert.Equal(t, before, s.Result().Data)
			assert.Nil(t, s.Video())
		})
	}
}

func TestBackToEditorPreservesPhotoAndFraming(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inPreview(t, c, "cyberpunk_2077")
	tr, err := c.UpdateTransform(s, func(tr *transform.Transform) { tr.RotateTo(45) })
	require.NoError(t, err)
	require.NoError(t, c.Travel(context.Background(), s))
	require.NoError(t, c.Analyze(context.Background(), s))

	require.NoError(t, c.BackToEditor(s))
	snap := s.Snapshot()
	assert.Equal(t, domain.StagePreview, snap.Stage)
	assert.True(t, snap.HasImage)
	assert.Equal(t, tr, snap.Transform)
	assert.False(t, snap.HasResult)
	assert.False(t, snap.HasVideo)
	assert.Empty(t, snap.Analysis)
	assert.Empty(t, snap.Message)
}

func TestStartOverClearsEverything(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(gw, true)
	s := inResult(t, c)
	require.NoError(t, c.Animate(context.Background(), s))
	require.NoError(t, c.Analyze(context.Background(), s))

	c.StartOver(s)
	snap := s.Snapshot()
	assert.Equal(t, domain.StageUpload, snap.Stage)
	assert.False(t, snap.HasImage)
	assert.False(t, snap.HasResult)
	assert.False(t, snap.HasVideo)
	assert.Empty(t, snap.Analysis)
	assert.Empty(t, snap.EraID)
	assert.Equal(t, transform.Identity(), snap.Transform)
	assert.Equal(t, domain.CameraIdle, snap.Camera)
}

func TestReleasePathsCloseCameraFeed(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	for name, release := range map[string]func(s *Session){
		"start over":    c.StartOver,
		"cancel camera": c.CancelCamera,
		"evict":         func(s *Session) { s.close() },
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestSession()
			s.Feed().Expect()
			require.NoError(t, s.Feed().Deny("queued"))

			release(s)
			assert.Error(t, s.Feed().Deny("late"))
			assert.Equal(t, domain.CameraIdle, s.Snapshot().Camera)
		})
	}
}

func TestStartOverDiscardsInFlightResult(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := newTestController(gw, true)
	s := inPreview(t, c, "cyberpunk_2077")

	op, err := c.PrepareTravel(context.Background(), s)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = op.Run()
	}()
	<-gw.entered

	c.StartOver(s)
	close(gw.block)
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, domain.StageUpload, snap.Stage)
	assert.Equal(t, domain.StatusIdle, snap.Status)
	assert.False(t, snap.HasResult)
	assert.Empty(t, snap.Message)
}

func TestSelectEraFromResultReturnsToPreview(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := inResult(t, c)

	_, err := c.SelectEra(s, "woodstock_mud")
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, domain.StagePreview, snap.Stage)
	assert.Equal(t, "woodstock_mud", snap.EraID)
	assert.False(t, snap.HasResult)

	_, err = c.SelectEra(s, "atlantis")
	require.ErrorIs(t, err, domain.ErrUnknownEra)
}

func TestFrameCachedAndStageGated(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := newTestSession()

	_, err := c.Frame(s)
	require.ErrorIs(t, err, domain.ErrWrongStage)

	require.NoError(t, c.LoadImage(s, testRaw()))
	first, err := c.Frame(s)
	require.NoError(t, err)
	second, err := c.Frame(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	img, err := compositor.Decode(first)
	require.NoError(t, err)
	assert.Equal(t, compositor.Width, img.Width)
	assert.Equal(t, compositor.Height, img.Height)
}

func TestUpdateTransformOutsidePreview(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := newTestSession()

	_, err := c.UpdateTransform(s, func(tr *transform.Transform) { tr.ZoomBy(1) })
	require.ErrorIs(t, err, domain.ErrWrongStage)
}

func TestCameraDeniedSetsMessage(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := newTestSession()

	err := c.StartCamera(context.Background(), s)
	require.ErrorIs(t, err, domain.ErrCameraUnavailable)
	snap := s.Snapshot()
	assert.Equal(t, domain.CameraError, snap.Camera)
	assert.Equal(t, domain.MsgCameraDenied, snap.Message)
	assert.False(t, snap.HasImage)

	require.ErrorIs(t, c.CaptureCamera(context.Background(), s), domain.ErrCameraNotStreaming)
	c.CancelCamera(s)
	assert.Equal(t, domain.CameraIdle, s.Snapshot().Camera)
}

func TestShareOutcomes(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	s := inResult(t, c)

	payload, err := c.Share(s)
	require.NoError(t, err)
	assert.Equal(t, ShareTitle, payload.Title)
	assert.Equal(t, "Check out my time travel trip to Neo-Tokyo 2077 with ChronoBooth! #ChronoBooth #AI", payload.Text)
	assert.Equal(t, ShareFileName, payload.FileName)

	require.NoError(t, c.ReportShare(s, domain.ShareCancelled))
	assert.Empty(t, s.Snapshot().Message)
	require.NoError(t, c.ReportShare(s, domain.ShareFailed))
	assert.Equal(t, domain.MsgShareFailed, s.Snapshot().Message)
	require.Error(t, c.ReportShare(s, "exploded"))
}

func TestDownloadName(t *testing.T) {
	c := newTestController(&fakeGateway{}, true)
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }
	s := inPreview(t, c, "titanic_dinner")

	assert.Equal(t, "chronobooth-titanic_dinner-1700000000123.jpg", c.DownloadName(s, "jpg"))
	assert.Equal(t, "chronobooth-titanic_dinner-1700000000123.webp", c.DownloadName(s, "webp"))
}
