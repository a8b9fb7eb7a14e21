// Package speech defines the speech-to-text collaborator the assistant
// listens through.
package speech

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNothingUnderstood means audio was captured but produced no usable
	// text. Callers should simply listen again.
	ErrNothingUnderstood = errors.New("speech: nothing understood")

	// ErrServiceUnavailable means the recognizer or its input device cannot
	// be reached. Callers should back off before retrying.
	ErrServiceUnavailable = errors.New("speech: service unavailable")
)

// Recognizer turns one spoken phrase into text.
//
// CaptureUtterance blocks until a phrase is heard, timeout elapses without
// speech starting, or ctx is done. phraseLimit caps the length of a single
// phrase; zero means no cap.
type Recognizer interface {
	CaptureUtterance(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)

// CaptureUtterance calls f.
func (f RecognizerFunc) CaptureUtterance(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	return f(ctx, timeout, phraseLimit)
}
