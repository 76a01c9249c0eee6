package dataapi

// upload_limiter.go bounds how many multipart uploads (CSV imports and
// per-row files) are in flight against the data API at once.
//
// Every browser session shares one Client, so without a bound a burst of
// large uploads from several sessions would all be buffered in memory at the
// same time. When all slots are taken, new uploads wait up to maxWait before
// failing with ErrTooManyUploads.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyUploads is returned when all upload slots are occupied and the
// wait timeout expires.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

// DefaultMaxConcurrentUploads is the default limit for parallel uploads.
const DefaultMaxConcurrentUploads = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 15 * time.Second

// UploadLimiter is a semaphore over upstream uploads.
type UploadLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewUploadLimiter creates a limiter that allows at most maxConcurrent
// simultaneous uploads.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &UploadLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for an upload slot.
// The caller MUST call Release() when the upload completes.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyUploads
	}
}

// Release returns a slot taken by Acquire.
func (l *UploadLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of uploads in flight.
func (l *UploadLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *UploadLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all uploads finish or ctx is done.
// Used on shutdown so in-flight uploads are not cut off.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
