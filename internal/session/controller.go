package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"chronobooth/internal/capture"
	"chronobooth/internal/catalog"
	"chronobooth/internal/compositor"
	"chronobooth/internal/domain"
	"chronobooth/internal/transform"
)

// Gateway is the remote generation collaborator.
type Gateway interface {
	InventScenario(ctx context.Context) (domain.Scenario, error)
	RenderSceneWithSubject(ctx context.Context, framed []byte, directive string) (*domain.Media, error)
	AnimateScene(ctx context.Context, img *domain.Media, directive string) (*domain.Media, error)
	ApplyEdit(ctx context.Context, img *domain.Media, instruction string) (*domain.Media, error)
	DescribeScene(ctx context.Context, img *domain.Media) (string, error)
}

// Authorizer reports whether video generation has a billable key to use.
type Authorizer interface {
	VideoKeyAvailable() bool
}

// Controller performs every named transition on a Session. Gateway calls are
// bounded process-wide by a weighted semaphore.
type Controller struct {
	catalog *catalog.Catalog
	gateway Gateway
	auth    Authorizer
	sem     *semaphore.Weighted
	logger  zerolog.Logger
	now     func() time.Time
}

func NewController(cat *catalog.Catalog, gw Gateway, auth Authorizer, concurrency int, logger zerolog.Logger) *Controller {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Controller{
		catalog: cat,
		gateway: gw,
		auth:    auth,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

func (c *Controller) touchLocked(s *Session) {
	s.updatedAt = c.now()
}

// LoadImage replaces the subject photo and moves the session to Preview.
func (c *Controller) LoadImage(s *Session, raw *domain.RawImage) error {
	if raw == nil || raw.Image == nil {
		return domain.ErrNoImage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusIdle {
		return domain.ErrBusy
	}
	if s.stage == domain.StageResult {
		return domain.ErrWrongStage
	}
	s.setImageLocked(raw)
	s.stage = domain.StagePreview
	s.message = domain.MsgNone
	c.touchLocked(s)
	return nil
}

// Upload decodes a user-selected file. A dismissed picker is a silent no-op.
func (c *Controller) Upload(ctx context.Context, s *Session, r io.Reader, maxBytes int64) error {
	raw, err := capture.NewFileSource(r, maxBytes).Produce(ctx)
	if err != nil {
		if capture.IsNoSelection(err) {
			return nil
		}
		if errors.Is(err, domain.ErrUnsupportedImage) {
			c.setMessage(s, domain.MsgUnreadableImage)
		}
		return err
	}
	return c.LoadImage(s, raw)
}

// StartCamera blocks until the browser grants or refuses the feed.
func (c *Controller) StartCamera(ctx context.Context, s *Session) error {
	s.mu.Lock()
	stage := s.stage
	s.mu.Unlock()
	if stage == domain.StageResult {
		if s.feed != nil {
			_ = s.feed.Close()
		}
		return domain.ErrWrongStage
	}
	err := s.camera.Start(ctx)
	switch {
	case err == nil:
		c.setMessage(s, domain.MsgNone)
	case errors.Is(err, context.Canceled):
	case errors.Is(err, domain.ErrBusy):
	default:
		c.logger.Warn().Err(err).Str("session_id", s.ID).Msg("camera unavailable")
		c.setMessage(s, domain.MsgCameraDenied)
	}
	return err
}

// CaptureCamera freezes the live frame and loads it as the subject photo.
func (c *Controller) CaptureCamera(ctx context.Context, s *Session) error {
	raw, err := s.camera.Capture(ctx)
	if err != nil {
		return err
	}
	return c.LoadImage(s, raw)
}

func (c *Controller) CancelCamera(s *Session) {
	s.releaseCamera()
}

// CameraError returns the failure behind the camera's Error state.
func (c *Controller) CameraError(s *Session) error {
	return s.camera.Err()
}

// UpdateTransform applies fn to the framing transform. Only valid in Preview.
func (c *Controller) UpdateTransform(s *Session, fn func(*transform.Transform)) (transform.Transform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StagePreview {
		return s.transform, domain.ErrWrongStage
	}
	fn(&s.transform)
	s.transform = s.transform.Normalize()
	s.frame = nil
	c.touchLocked(s)
	return s.transform, nil
}

// Autofit sets the transform to the strongest crop found in the subject.
func (c *Controller) Autofit(ctx context.Context, s *Session) (transform.Transform, error) {
	s.mu.Lock()
	raw, stage := s.raw, s.stage
	s.mu.Unlock()
	if stage != domain.StagePreview {
		return transform.Transform{}, domain.ErrWrongStage
	}
	if raw == nil {
		return transform.Transform{}, domain.ErrNoImage
	}
	t, err := compositor.Suggest(ctx, raw.Image)
	if err != nil {
		return transform.Transform{}, err
	}
	return c.UpdateTransform(s, func(cur *transform.Transform) { *cur = t })
}

// Frame returns the composed preview. Frames are cached until the image or
// transform changes and are only produced while in Preview.
func (c *Controller) Frame(s *Session) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StagePreview {
		return nil, domain.ErrWrongStage
	}
	if s.frame != nil {
		return s.frame, nil
	}
	data, err := compositor.Compose(s.raw, s.transform)
	if err != nil {
		return nil, err
	}
	s.frame = data
	return data, nil
}

// SelectEra chooses the era for the next trip. Any derived result is
// discarded and a session showing a result returns to Preview.
func (c *Controller) SelectEra(s *Session, eraID string) (domain.Era, error) {
	era, err := c.catalog.Lookup(eraID)
	if err != nil {
		return domain.Era{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusIdle {
		return domain.Era{}, domain.ErrBusy
	}
	if s.stage == domain.StageUpload {
		return domain.Era{}, domain.ErrWrongStage
	}
	s.eraID = era.ID
	s.clearResultLocked()
	s.message = domain.MsgNone
	if s.stage == domain.StageResult {
		s.stage = domain.StagePreview
	}
	c.touchLocked(s)
	return era, nil
}

// BackToEditor returns from Result to Preview keeping the photo and framing.
func (c *Controller) BackToEditor(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StageResult {
		return domain.ErrWrongStage
	}
	s.abandonLocked()
	s.clearResultLocked()
	s.message = domain.MsgNone
	s.stage = domain.StagePreview
	s.frame = nil
	c.touchLocked(s)
	return nil
}

// StartOver discards everything and returns to Upload.
func (c *Controller) StartOver(s *Session) {
	s.mu.Lock()
	s.abandonLocked()
	s.clearResultLocked()
	s.setImageLocked(nil)
	s.eraID = ""
	s.message = domain.MsgNone
	s.stage = domain.StageUpload
	c.touchLocked(s)
	s.mu.Unlock()
	s.releaseCamera()
}

func (c *Controller) DismissMessage(s *Session) {
	c.setMessage(s, domain.MsgNone)
}

func (c *Controller) setMessage(s *Session, msg domain.MessageKey) {
	s.mu.Lock()
	s.message = msg
	c.touchLocked(s)
	s.mu.Unlock()
}

// Op is a claimed, not yet executed gateway operation. The session's status
// is already non-idle when an Op is returned, so a second Prepare of any kind
// fails with ErrBusy until Run completes.
type Op struct {
	c       *Controller
	s       *Session
	kind    string
	ctx     context.Context
	cancel  context.CancelFunc
	epoch   uint64
	failMsg domain.MessageKey
	exec    func(ctx context.Context, op *Op) (func(*Session), error)
}

// claimLocked moves the session into status and returns an Op bound to the
// current epoch. Caller holds s.mu.
func (c *Controller) claimLocked(parent context.Context, s *Session, kind string, status domain.Status, failMsg domain.MessageKey) *Op {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	s.status = status
	s.phase = PhasePreparing
	s.cancelOp = cancel
	c.touchLocked(s)
	return &Op{c: c, s: s, kind: kind, ctx: ctx, cancel: cancel, epoch: s.epoch, failMsg: failMsg}
}

// Run executes the operation and folds its outcome into the session. A
// result that arrives after BackToEditor or StartOver is dropped.
func (op *Op) Run() error {
	defer op.cancel()
	log := op.c.logger.With().Str("session_id", op.s.ID).Str("op", op.kind).Logger()
	started := time.Now()

	var (
		apply func(*Session)
		err   error
	)
	if err = op.c.sem.Acquire(op.ctx, 1); err == nil {
		apply, err = op.exec(op.ctx, op)
		op.c.sem.Release(1)
	}

	s := op.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != op.epoch {
		log.Debug().Err(err).Msg("discarding abandoned operation")
		if err == nil {
			err = context.Canceled
		}
		return err
	}
	s.status = domain.StatusIdle
	s.phase = PhaseNone
	s.cancelOp = nil
	op.c.touchLocked(s)
	if err != nil {
		s.message = op.failMsg
		log.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("operation failed")
		return err
	}
	apply(s)
	log.Info().Dur("elapsed", time.Since(started)).Msg("operation completed")
	return nil
}

// setPhase records progress while the op is still current.
func (op *Op) setPhase(p Phase) {
	op.s.mu.Lock()
	if op.s.epoch == op.epoch {
		op.s.phase = p
	}
	op.s.mu.Unlock()
}

// PrepareTravel claims the session for generating the result image.
func (c *Controller) PrepareTravel(ctx context.Context, s *Session) (*Op, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusIdle {
		return nil, domain.ErrBusy
	}
	if s.stage != domain.StagePreview {
		return nil, domain.ErrWrongStage
	}
	if s.raw == nil {
		return nil, domain.ErrNoImage
	}
	if s.eraID == "" {
		return nil, domain.ErrNoEra
	}
	era, err := c.catalog.Lookup(s.eraID)
	if err != nil {
		return nil, err
	}
	raw, t := s.raw, s.transform

	s.message = domain.MsgNone
	s.analysis = ""
	s.video = nil
	op := c.claimLocked(ctx, s, "travel", domain.StatusGenerating, domain.MsgTravelFailed)
	op.exec = func(ctx context.Context, op *Op) (func(*Session), error) {
		framed, err := compositor.Compose(raw, t)
		if err != nil {
			return nil, err
		}
		var scenario *domain.Scenario
		directive := era.Directive
		if era.IsSurprise() {
			op.setPhase(PhaseInventing)
			sc, err := c.gateway.InventScenario(ctx)
			if err != nil || strings.TrimSpace(sc.VisualDirective) == "" {
				c.logger.Warn().Err(err).Str("session_id", s.ID).Msg("scenario invention failed, using fallback")
				sc = domain.FallbackScenario
			}
			scenario = &sc
			directive = sc.VisualDirective
		}
		op.setPhase(PhaseRendering)
		media, err := c.gateway.RenderSceneWithSubject(ctx, framed, directive)
		if err != nil {
			return nil, err
		}
		if media.Empty() {
			return nil, fmt.Errorf("%w: empty image", domain.ErrProviderFailure)
		}
		return func(s *Session) {
			s.result = media
			s.resultVersion++
			s.directive = directive
			s.scenario = scenario
			s.stage = domain.StageResult
		}, nil
	}
	return op, nil
}

// PrepareAnimate claims the session for generating a video of the result.
func (c *Controller) PrepareAnimate(ctx context.Context, s *Session) (*Op, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusIdle {
		return nil, domain.ErrBusy
	}
	if s.result == nil {
		return nil, domain.ErrNoResult
	}
	if s.video != nil {
		return nil, domain.ErrVideoExists
	}
	if s.directive == "" {
		return nil, domain.ErrNoDirective
	}
	if c.auth == nil || !c.auth.VideoKeyAvailable() {
		s.message = domain.MsgKeyRequired
		c.touchLocked(s)
		return nil, domain.ErrKeyRequired
	}
	img, directive, version := s.result, s.directive, s.resultVersion

	s.message = domain.MsgNone
	op := c.claimLocked(ctx, s, "animate", domain.StatusGeneratingVideo, domain.MsgVideoFailed)
	op.exec = func(ctx context.Context, op *Op) (func(*Session), error) {
		op.setPhase(PhaseDirecting)
		video, err := c.gateway.AnimateScene(ctx, img, directive)
		if err != nil {
			return nil, err
		}
		if video.Empty() {
			return nil, fmt.Errorf("%w: empty video", domain.ErrProviderFailure)
		}
		return func(s *Session) {
			s.video = video
			s.videoVersion = version
		}, nil
	}
	return op, nil
}

// PrepareEdit claims the session for an instruction-driven edit of the
// result. A previously generated video is kept and reported stale.
func (c *Controller) PrepareEdit(ctx context.Context, s *Session, instruction string) (*Op, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, domain.ErrEmptyInstruction
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusIdle {
		return nil, domain.ErrBusy
	}
	if s.result == nil {
		return nil, domain.ErrNoResult
	}
	img := s.result

	s.message = domain.MsgNone
	op := c.claimLocked(ctx, s, "edit", domain.StatusEditing, domain.MsgEditFailed)
	op.exec = func(ctx context.Context, op *Op) (func(*Session), error) {
		op.setPhase(PhaseEditing)
		edited, err := c.gateway.ApplyEdit(ctx, img, instruction)
		if err != nil {
			return nil, err
		}
		if edited.Empty() {
			return nil, fmt.Errorf("%w: empty image", domain.ErrProviderFailure)
		}
		return func(s *Session) {
			s.result = edited
			s.resultVersion++
		}, nil
	}
	return op, nil
}

// PrepareAnalyze claims the session for describing the result.
func (c *Controller) PrepareAnalyze(ctx context.Context, s *Session) (*Op, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusIdle {
		return nil, domain.ErrBusy
	}
	if s.result == nil {
		return nil, domain.ErrNoResult
	}
	img := s.result

	s.message = domain.MsgNone
	s.analysis = ""
	op := c.claimLocked(ctx, s, "analyze", domain.StatusAnalyzing, domain.MsgAnalyzeFailed)
	op.exec = func(ctx context.Context, op *Op) (func(*Session), error) {
		op.setPhase(PhaseAnalyzing)
		text, err := c.gateway.DescribeScene(ctx, img)
		if err != nil {
			return nil, err
		}
		return func(s *Session) {
			s.analysis = text
		}, nil
	}
	return op, nil
}

// Travel runs PrepareTravel to completion.
func (c *Controller) Travel(ctx context.Context, s *Session) error {
	op, err := c.PrepareTravel(ctx, s)
	if err != nil {
		return err
	}
	return op.Run()
}

func (c *Controller) Animate(ctx context.Context, s *Session) error {
	op, err := c.PrepareAnimate(ctx, s)
	if err != nil {
		return err
	}
	return op.Run()
}

func (c *Controller) Edit(ctx context.Context, s *Session, instruction string) error {
	op, err := c.PrepareEdit(ctx, s, instruction)
	if err != nil {
		return err
	}
	return op.Run()
}

func (c *Controller) Analyze(ctx context.Context, s *Session) error {
	op, err := c.PrepareAnalyze(ctx, s)
	if err != nil {
		return err
	}
	return op.Run()
}
