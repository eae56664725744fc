package session

import (
	"fmt"

	"chronobooth/internal/domain"
)

const (
	ShareTitle    = "ChronoBooth Time Travel"
	ShareFileName = "chronobooth-result.jpg"
	shareFallback = "History"
)

// SharePayload is what the client hands to the native share sheet.
type SharePayload struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	FileName string `json:"file_name"`
	MIME     string `json:"mime"`
}

// Share builds the share sheet payload for the current result.
func (c *Controller) Share(s *Session) (SharePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return SharePayload{}, domain.ErrNoResult
	}
	return SharePayload{
		Title:    ShareTitle,
		Text:     fmt.Sprintf("Check out my time travel trip to %s with ChronoBooth! #ChronoBooth #AI", c.eraNameLocked(s)),
		FileName: ShareFileName,
		MIME:     s.result.MIME,
	}, nil
}

// eraNameLocked names the destination of the current result. A surprise trip
// is named after its invented scenario.
func (c *Controller) eraNameLocked(s *Session) string {
	if s.scenario != nil && s.scenario.Title != "" {
		return s.scenario.Title
	}
	if s.eraID == "" {
		return shareFallback
	}
	era, err := c.catalog.Lookup(s.eraID)
	if err != nil || era.IsSurprise() {
		return shareFallback
	}
	return era.Name
}

// ReportShare records how the share sheet closed. Only a genuine failure is
// surfaced; a cancelled sheet is not an error and an unsupported one falls
// back to download on the client.
func (c *Controller) ReportShare(s *Session, outcome domain.ShareOutcome) error {
	switch outcome {
	case domain.ShareFailed:
		c.setMessage(s, domain.MsgShareFailed)
	case domain.ShareShared:
		c.setMessage(s, domain.MsgNone)
	case domain.ShareCancelled, domain.ShareUnsupported:
	default:
		return fmt.Errorf("unknown share outcome %q", outcome)
	}
	return nil
}

// DownloadName is the file name offered when saving the result locally.
func (c *Controller) DownloadName(s *Session, ext string) string {
	s.mu.Lock()
	eraID := s.eraID
	s.mu.Unlock()
	if eraID == "" {
		eraID = "unknown"
	}
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("chronobooth-%s-%d.%s", eraID, c.now().UnixMilli(), ext)
}
