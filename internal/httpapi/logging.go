package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// zlog is the HTTP layer's logger. Unset means the global zerolog logger.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func baseLogger() zerolog.Logger {
	if zlog != nil {
		return *zlog
	}
	return log.Logger
}

// requestLevel reads a per-request override from ?log= or X-Log-Level.
// ok is false when neither is present or the value does not parse.
func requestLevel(r *http.Request) (zerolog.Level, bool) {
	v := r.URL.Query().Get("log")
	if v == "" {
		v = r.Header.Get("X-Log-Level")
	}
	if v == "" {
		return zerolog.NoLevel, false
	}
	if v == "1" {
		return zerolog.DebugLevel, true
	}
	lvl, err := zerolog.ParseLevel(v)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, false
	}
	return lvl, true
}

// requestLogger is the logger for r, tagged with the request id and honouring
// a per-request level override.
func requestLogger(r *http.Request) zerolog.Logger {
	l := baseLogger().With().Str("path", r.URL.Path).Logger()
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	if lvl, ok := requestLevel(r); ok {
		l = l.Level(lvl)
	}
	return l
}

// AccessLog logs one line per request at info, or at warn for 5xx answers.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		l := requestLogger(r)
		ev := l.Info()
		if status >= 500 {
			ev = l.Warn()
		}
		ev.Str("method", r.Method).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("dur", time.Since(start)).
			Msg("request")
	})
}
