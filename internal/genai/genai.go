// Package genai defines the generation-side collaborator interfaces and
// their OpenAI-backed implementations. The pipeline only ever sees these
// narrow interfaces; retry scheduling belongs to the caller.
package genai

import (
	"context"
	"errors"
)

// ErrNoImageService marks the image branch as unavailable. A pipeline wired
// without an image service skips the branch instead of failing it.
var ErrNoImageService = errors.New("genai: no image service configured")

// TransientError wraps a failure worth retrying: timeouts, rate limits and
// server-side errors from the generation backend.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "genai: transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// ContentGenerationService produces long-form text from a prompt.
// toolsEnabled asks the backend to use its research tools (web search) while
// generating; backends without tools may ignore it.
type ContentGenerationService interface {
	Generate(ctx context.Context, prompt string, toolsEnabled bool) (string, error)
}

// ImageRef is a created illustration reference.
type ImageRef struct {
	URL     string
	AltText string
}

// ImageCreationService creates one illustration for a prompt.
type ImageCreationService interface {
	Create(ctx context.Context, prompt string) (ImageRef, error)
}
