package ocr_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/billfold/internal/ocr"
)

type fakeSession struct {
	text   string
	err    error
	block  bool
	closed bool
}

func (s *fakeSession) Recognize(ctx context.Context, _ []byte) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	return s.text, s.err
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeFactory struct {
	text       string
	err        error
	block      bool
	factoryErr error
	created    []*fakeSession
}

func (f *fakeFactory) NewSession(context.Context) (ocr.Session, error) {
	if f.factoryErr != nil {
		return nil, f.factoryErr
	}

	s := &fakeSession{text: f.text, err: f.err, block: f.block}
	f.created = append(f.created, s)

	return s, nil
}

func TestExtractor_Extract(t *testing.T) {
	factory := &fakeFactory{text: "  Coffee Shop - $5.50  \n"}
	pool := ocr.NewPool(factory, 1)
	extractor := ocr.NewExtractor(pool, time.Second)

	text, err := extractor.Extract(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "Coffee Shop - $5.50", text)
}

func TestExtractor_NoText(t *testing.T) {
	factory := &fakeFactory{text: "   \n\t"}
	pool := ocr.NewPool(factory, 1)
	extractor := ocr.NewExtractor(pool, time.Second)

	_, err := extractor.Extract(context.Background(), []byte("png"))
	assert.ErrorIs(t, err, ocr.ErrNoText)
}

func TestExtractor_Timeout(t *testing.T) {
	// A backend that never answers must yield ErrTimeout, not a hang.
	factory := &fakeFactory{block: true}
	pool := ocr.NewPool(factory, 1)
	extractor := ocr.NewExtractor(pool, 20*time.Millisecond)

	done := make(chan error, 1)

	go func() {
		_, err := extractor.Extract(context.Background(), []byte("png"))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ocr.ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("extract did not return after timeout")
	}
}

func TestExtractor_BackendError(t *testing.T) {
	factory := &fakeFactory{err: errors.New("worker crashed")}
	pool := ocr.NewPool(factory, 1)
	extractor := ocr.NewExtractor(pool, time.Second)

	_, err := extractor.Extract(context.Background(), []byte("png"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ocr.ErrTimeout)
}

func TestPool_WarmAndReuse(t *testing.T) {
	factory := &fakeFactory{text: "a"}
	pool := ocr.NewPool(factory, 2)
	pool.Warm(context.Background())

	require.Len(t, factory.created, 2)

	// Acquire pooled sessions without creating new ones.
	s1, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	s2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Len(t, factory.created, 2)

	// A third acquire falls back to on-demand creation.
	s3, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Len(t, factory.created, 3)

	pool.Release(s1)
	pool.Release(s2)

	// Pool is full again: releasing the extra session closes it.
	pool.Release(s3)
	assert.True(t, s3.(*fakeSession).closed)
}

func TestPool_AcquireOnDemandWhenEmpty(t *testing.T) {
	factory := &fakeFactory{text: "a"}
	pool := ocr.NewPool(factory, 2)

	_, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Len(t, factory.created, 1)
}

func TestPool_AcquireFactoryError(t *testing.T) {
	factory := &fakeFactory{factoryErr: errors.New("sidecar unavailable")}
	pool := ocr.NewPool(factory, 1)

	_, err := pool.Acquire(context.Background())
	assert.Error(t, err)
}

func TestPool_Close(t *testing.T) {
	factory := &fakeFactory{text: "a"}
	pool := ocr.NewPool(factory, 2)
	pool.Warm(context.Background())
	pool.Close()

	for _, s := range factory.created {
		assert.True(t, s.closed)
	}
}
