package dataapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUploadLimiter_AcquireRelease(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Available(); got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := limiter.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	limiter.Release()
	limiter.Release()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after Release, ActiveCount = %d, want 0", got)
	}
}

func TestUploadLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewUploadLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	if err := limiter.Acquire(ctx); err != ErrTooManyUploads {
		t.Errorf("expected ErrTooManyUploads, got %v", err)
	}
}

func TestUploadLimiter_ContextCancelled(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Minute)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Acquire(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestUploadLimiter_WaitForDrain(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain = %v, want nil", err)
	}
}

func TestClient_UploadUsesLimiter(t *testing.T) {
	limiter := NewUploadLimiter(1, 20*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"url":"u"}`)
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, Uploads: limiter})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	// Occupy the only slot so the client cannot get one.
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	_, err = c.UploadFile(context.Background(), "t", "1", "foto", "a.png", strings.NewReader("x"))
	if err != ErrTooManyUploads {
		t.Errorf("UploadFile error = %v, want ErrTooManyUploads", err)
	}
	limiter.Release()

	if _, err := c.UploadFile(context.Background(), "t", "1", "foto", "a.png", strings.NewReader("x")); err != nil {
		t.Errorf("UploadFile after release: %v", err)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after upload = %d, want 0", got)
	}
}
