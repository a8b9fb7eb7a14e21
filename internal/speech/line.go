package speech

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// LineRecognizer treats each line of a reader as one utterance. It stands in
// for a microphone when driving the assistant from a terminal or a file.
type LineRecognizer struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
}

// NewLineRecognizer reads utterances from r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{scanner: bufio.NewScanner(r)}
}

// CaptureUtterance returns the next line. Blank lines yield
// ErrNothingUnderstood; the end of input yields io.EOF. Timeouts do not
// apply to buffered input.
func (l *LineRecognizer) CaptureUtterance(ctx context.Context, _, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	line := strings.TrimSpace(l.scanner.Text())
	if line == "" {
		return "", ErrNothingUnderstood
	}
	return line, nil
}
