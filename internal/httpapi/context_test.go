package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWorkContext_CancelledByServerShutdown(t *testing.T) {
	base, stop := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	ctx, cancel := workContext(httptest.NewRequest("GET", "/", nil))
	defer cancel()
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("work context survived server shutdown")
	}
}

func TestWorkContext_CancelledWithRequest(t *testing.T) {
	SetBaseContext(nil)
	reqCtx, cancelReq := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/", nil).WithContext(reqCtx)
	ctx, cancel := workContext(r)
	defer cancel()
	cancelReq()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("work context survived request cancellation")
	}
}

func TestSetMaxBodyBytes(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}
