// Package session owns the per-tab state machine: capture, framing, era
// selection and the generation operations built on top of them.
package session

import (
	"context"
	"sync"
	"time"

	"chronobooth/internal/capture"
	"chronobooth/internal/domain"
	"chronobooth/internal/transform"
)

// Phase describes the step an outstanding operation is on.
type Phase string

const (
	PhaseNone      Phase = ""
	PhasePreparing Phase = "preparing"
	PhaseInventing Phase = "inventing"
	PhaseRendering Phase = "rendering"
	PhaseDirecting Phase = "directing"
	PhaseEditing   Phase = "editing"
	PhaseAnalyzing Phase = "analyzing"
)

// Session is one user's in-memory workspace. All fields are guarded by mu.
type Session struct {
	ID string

	mu        sync.Mutex
	stage     domain.Stage
	status    domain.Status
	phase     Phase
	raw       *domain.RawImage
	transform transform.Transform
	eraID     string
	directive string
	scenario  *domain.Scenario
	result    *domain.Media
	video     *domain.Media
	analysis  string
	message   domain.MessageKey

	// resultVersion increments whenever result is replaced; videoVersion
	// records the result version the video was generated from.
	resultVersion int
	videoVersion  int

	// epoch increments on BackToEditor and StartOver so a late completion
	// of an abandoned operation is discarded.
	epoch    uint64
	cancelOp context.CancelFunc

	frame []byte

	feed   *capture.FeedDevice
	camera *capture.Camera

	createdAt time.Time
	updatedAt time.Time
}

func newSession(id string, feed *capture.FeedDevice, now time.Time) *Session {
	return &Session{
		ID:        id,
		stage:     domain.StageUpload,
		status:    domain.StatusIdle,
		transform: transform.Identity(),
		feed:      feed,
		camera:    capture.NewCamera(feed),
		createdAt: now,
		updatedAt: now,
	}
}

// Feed returns the device the browser attaches its camera socket to.
func (s *Session) Feed() *capture.FeedDevice {
	return s.feed
}

// Snapshot is the client-visible view of a session.
type Snapshot struct {
	ID          string              `json:"id"`
	Stage       domain.Stage        `json:"stage"`
	Status      domain.Status       `json:"status"`
	Phase       Phase               `json:"phase,omitempty"`
	Camera      domain.CameraState  `json:"camera"`
	HasImage    bool                `json:"has_image"`
	ImageWidth  int                 `json:"image_width,omitempty"`
	ImageHeight int                 `json:"image_height,omitempty"`
	Transform   transform.Transform `json:"transform"`
	EraID       string              `json:"era_id,omitempty"`
	Scenario    *domain.Scenario    `json:"scenario,omitempty"`
	HasResult   bool                `json:"has_result"`
	HasVideo    bool                `json:"has_video"`
	VideoStale  bool                `json:"video_stale"`
	VideoMIME   string              `json:"video_mime,omitempty"`
	Analysis    string              `json:"analysis,omitempty"`
	Message     domain.MessageKey   `json:"message,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		Stage:     s.stage,
		Status:    s.status,
		Phase:     s.phase,
		Camera:    s.camera.State(),
		HasImage:  s.raw != nil,
		Transform: s.transform,
		EraID:     s.eraID,
		HasResult: s.result != nil,
		HasVideo:  s.video != nil,
		Analysis:  s.analysis,
		Message:   s.message,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.raw != nil {
		snap.ImageWidth, snap.ImageHeight = s.raw.Width, s.raw.Height
	}
	if s.scenario != nil {
		sc := *s.scenario
		snap.Scenario = &sc
	}
	if s.video != nil {
		snap.VideoMIME = s.video.MIME
	}
	snap.VideoStale = s.videoStaleLocked()
	return snap
}

// Result returns the current result image, if any.
func (s *Session) Result() *domain.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Video returns the current generated video, if any.
func (s *Session) Video() *domain.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video
}

func (s *Session) Analysis() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

func (s *Session) videoStaleLocked() bool {
	return s.video != nil && s.videoVersion != s.resultVersion
}

func (s *Session) EraID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eraID
}

// abandonLocked cancels any outstanding operation and invalidates its
// completion.
func (s *Session) abandonLocked() {
	if s.cancelOp != nil {
		s.cancelOp()
		s.cancelOp = nil
	}
	s.epoch++
	s.status = domain.StatusIdle
	s.phase = PhaseNone
}

func (s *Session) setImageLocked(raw *domain.RawImage) {
	s.raw = raw
	s.transform.Reset()
	s.frame = nil
}

func (s *Session) clearResultLocked() {
	s.result = nil
	s.video = nil
	s.analysis = ""
	s.scenario = nil
	s.directive = ""
}

// close releases everything the session holds. Called on deletion and expiry.
func (s *Session) close() {
	s.mu.Lock()
	s.abandonLocked()
	s.mu.Unlock()
	s.releaseCamera()
}

// releaseCamera stops the camera and drops any feed socket not yet claimed.
func (s *Session) releaseCamera() {
	s.camera.Release()
	if s.feed != nil {
		_ = s.feed.Close()
	}
}
