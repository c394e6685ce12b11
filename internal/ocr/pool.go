package ocr

import (
	"context"
	"log/slog"
	"time"
)

// Pool keeps a bounded number of warm recognition sessions. Acquire hands
// out a pooled session when one is available and falls back to creating one
// on demand; Release returns a session to the pool or closes it when the
// pool is full.
type Pool struct {
	factory Factory
	idle    chan Session
}

func NewPool(factory Factory, size int) *Pool {
	if size < 1 {
		size = 1
	}

	return &Pool{
		factory: factory,
		idle:    make(chan Session, size),
	}
}

// Warm pre-creates sessions up to the pool size. Failures are logged and
// tolerated: sessions will be created on demand instead.
func (p *Pool) Warm(ctx context.Context) {
	start := time.Now()

	warmed := 0

	for i := 0; i < cap(p.idle); i++ {
		session, err := p.factory.NewSession(ctx)
		if err != nil {
			slog.Warn("failed to pre-warm ocr session", "error", err)
			continue
		}

		select {
		case p.idle <- session:
			warmed++
		default:
			_ = session.Close()
		}
	}

	slog.Info("ocr pool warmed", "sessions", warmed, "duration", time.Since(start))
}

func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	select {
	case session := <-p.idle:
		return session, nil
	default:
		return p.factory.NewSession(ctx)
	}
}

func (p *Pool) Release(session Session) {
	if session == nil {
		return
	}

	select {
	case p.idle <- session:
	default:
		if err := session.Close(); err != nil {
			slog.Warn("failed to close ocr session", "error", err)
		}
	}
}

// Close drains and closes all idle sessions.
func (p *Pool) Close() {
	for {
		select {
		case session := <-p.idle:
			_ = session.Close()
		default:
			return
		}
	}
}
