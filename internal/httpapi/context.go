package httpapi

import (
	"context"
	"net/http"
)

// serverBaseCtx is cancelled on process shutdown. Defaults to Background.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level context handlers derive work from.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// workContext returns the request context, additionally cancelled when the
// server base context ends. The returned cancel func must be called.
func workContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(serverBaseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
