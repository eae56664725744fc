package domain

type Stage string

const (
	StageUpload  Stage = "UPLOAD"
	StagePreview Stage = "PREVIEW"
	StageResult  Stage = "RESULT"
)

type Status string

const (
	StatusIdle            Status = "IDLE"
	StatusGenerating      Status = "GENERATING"
	StatusAnalyzing       Status = "ANALYZING"
	StatusEditing         Status = "EDITING"
	StatusGeneratingVideo Status = "GENERATING_VIDEO"
)

type CameraState string

const (
	CameraIdle      CameraState = "IDLE"
	CameraStreaming CameraState = "STREAMING"
	CameraError     CameraState = "ERROR"
)

type ShareOutcome string

const (
	ShareShared      ShareOutcome = "shared"
	ShareCancelled   ShareOutcome = "cancelled"
	ShareFailed      ShareOutcome = "failed"
	ShareUnsupported ShareOutcome = "unsupported"
)
