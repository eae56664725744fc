package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrBusy               = errors.New("operation in progress")
	ErrWrongStage         = errors.New("operation not allowed in current stage")
	ErrNoImage            = errors.New("no image loaded")
	ErrNoEra              = errors.New("no era selected")
	ErrUnknownEra         = errors.New("unknown era")
	ErrNoResult           = errors.New("no result image")
	ErrNoDirective        = errors.New("no scene directive recorded")
	ErrVideoExists        = errors.New("video already generated")
	ErrEmptyInstruction   = errors.New("edit instruction is empty")
	ErrKeyRequired        = errors.New("paid api key required")
	ErrProviderFailure    = errors.New("provider failure")
	ErrNoSelection        = errors.New("no file selected")
	ErrUnsupportedImage   = errors.New("unsupported image")
	ErrCameraUnavailable  = errors.New("camera unavailable")
	ErrCameraNotStreaming = errors.New("camera not streaming")
)
