package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoText means recognition ran but found nothing usable.
	ErrNoText = errors.New("no text detected in image")
	// ErrTimeout means recognition exceeded the configured budget.
	ErrTimeout = errors.New("ocr timed out")
)

// Session is one recognition worker. Sessions are not safe for concurrent
// use; the pool hands each out to one caller at a time.
type Session interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// Factory creates recognition sessions. Creating a session is expensive
// (the backend loads language data), which is why the pool pre-warms them.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Extractor turns a raster image into raw text using pooled recognition
// sessions, enforcing a hard per-call timeout.
type Extractor struct {
	pool    *Pool
	timeout time.Duration
}

func NewExtractor(pool *Pool, timeout time.Duration) *Extractor {
	return &Extractor{pool: pool, timeout: timeout}
}

// Extract runs recognition on the image. It returns ErrTimeout when the
// backend exceeds the budget and ErrNoText when recognition produces an
// empty result.
func (e *Extractor) Extract(ctx context.Context, image []byte) (string, error) {
	session, err := e.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquiring ocr session: %w", err)
	}
	defer e.pool.Release(session)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := session.Recognize(ctx, image)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}

		return "", fmt.Errorf("recognizing image: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}

	return text, nil
}
