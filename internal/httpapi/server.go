package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmorganca/ollama/api"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelconsole/internal/inference"
	"modelconsole/internal/shell"
	"modelconsole/internal/stats"
	"modelconsole/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *console.Service implements it.
type Service interface {
	TestModel(ctx context.Context, req types.TestModelRequest) (inference.Result, error)
	Models(ctx context.Context) ([]types.Model, error)
	CurrentModel(ctx context.Context) (string, error)
	SetDefaultModel(ctx context.Context, name string) error
	PullModel(ctx context.Context, name string, progress func(api.ProgressResponse)) error
	DeleteModel(ctx context.Context, name string) error
	History(ctx context.Context, model string) ([]stats.Record, error)
	Usage(ctx context.Context) ([]stats.ModelUsage, error)
	Performance(ctx context.Context) ([]stats.ModelPerformance, error)
	GPUs(ctx context.Context) ([]types.GPU, error)
	Execute(ctx context.Context, command string) (shell.Result, error)
	ExecuteInteractive(ctx context.Context, command, input string) (shell.Result, error)
	Ping(ctx context.Context) error
	DaemonAddr() string
}

// NewMux builds the router for svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(AccessLog)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		origins := corsAllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Log-Level", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}
	r.Route("/api", func(r chi.Router) {
		r.Post("/test-model", h.testModel)
		r.Get("/models", h.models)
		r.Get("/current-model", h.currentModel)
		r.Post("/set-default-model", h.setDefaultModel)
		r.Post("/download-model", h.downloadModel)
		r.Post("/delete-model", h.deleteModel)
		r.Get("/stats/inference-history", h.history)
		r.Get("/stats/model-usage", h.usage)
		r.Get("/stats/performance", h.performance)
		r.Get("/gpu-info", h.gpuInfo)
	})
	r.Post("/execute", h.execute)
	r.Post("/execute_interactive", h.executeInteractive)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", h.readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// decodeJSON enforces the content type and body limit. It writes the error
// answer itself and reports false when the handler should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", "")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body", "")
		return false
	}
	return true
}

func (h *handlers) testModel(w http.ResponseWriter, r *http.Request) {
	var req types.TestModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required", inference.InvalidRequest.String())
		return
	}
	ctx, cancel := workContext(r)
	defer cancel()
	res, err := h.svc.TestModel(ctx, req)
	if err != nil {
		if r.Context().Err() != nil {
			// client went away
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.TestModelResponse{
		Success:       true,
		Response:      res.Text,
		Model:         res.Model,
		Tokens:        res.TokenCountEstimate,
		ExecutionTime: res.ElapsedSeconds,
		Transport:     res.Transport,
	})
}

func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.Models(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}

func (h *handlers) currentModel(w http.ResponseWriter, r *http.Request) {
	cur, err := h.svc.CurrentModel(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.CurrentModelResponse{Current: cur})
}

func (h *handlers) setDefaultModel(w http.ResponseWriter, r *http.Request) {
	var req types.ModelActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetDefaultModel(r.Context(), req.Model); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ActionResponse{Success: true, Message: fmt.Sprintf("default model set to %s", req.Model)})
}

func (h *handlers) downloadModel(w http.ResponseWriter, r *http.Request) {
	var req types.ModelActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := workContext(r)
	defer cancel()
	l := requestLogger(r)
	err := h.svc.PullModel(ctx, req.Model, func(p api.ProgressResponse) {
		l.Debug().Str("model", req.Model).Str("status", p.Status).Int64("completed", p.Completed).Int64("total", p.Total).Msg("pull progress")
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ActionResponse{Success: true, Message: fmt.Sprintf("model %s downloaded", req.Model)})
}

func (h *handlers) deleteModel(w http.ResponseWriter, r *http.Request) {
	var req types.ModelActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.DeleteModel(r.Context(), req.Model); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ActionResponse{Success: true, Message: fmt.Sprintf("model %s deleted", req.Model)})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.History(r.Context(), r.URL.Query().Get("model"))
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []stats.Record{}
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{History: recs})
}

func (h *handlers) usage(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Usage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		u = []stats.ModelUsage{}
	}
	writeJSON(w, http.StatusOK, types.UsageResponse{Models: u})
}

func (h *handlers) performance(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Performance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		p = []stats.ModelPerformance{}
	}
	resp := types.PerformanceResponse{Models: p}
	if gpus, err := h.svc.GPUs(r.Context()); err == nil && len(gpus) > 0 {
		resp.GPUMetrics = gpus[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// gpuInfo answers 200 even when the query fails: a host without GPUs is a
// normal state for the console, not a server error.
func (h *handlers) gpuInfo(w http.ResponseWriter, r *http.Request) {
	resp := types.GPUInfoResponse{GPUs: []types.GPU{}}
	gpus, err := h.svc.GPUs(r.Context())
	if err != nil {
		l := requestLogger(r)
		l.Debug().Err(err).Msg("gpu info unavailable")
		resp.Error = err.Error()
	} else if len(gpus) > 0 {
		resp.GPUs = gpus
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) execute(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, false)
}

func (h *handlers) executeInteractive(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, true)
}

func (h *handlers) runCommand(w http.ResponseWriter, r *http.Request, interactive bool) {
	var req types.ExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, shell.ErrEmptyCommand)
		return
	}
	var (
		res shell.Result
		err error
	)
	if interactive {
		res, err = h.svc.ExecuteInteractive(r.Context(), req.Command, req.InputText)
	} else {
		res, err = h.svc.Execute(r.Context(), req.Command)
	}
	if err != nil {
		// the command could not be started; report it like a failed command
		res = shell.Result{Stdout: res.Stdout, Stderr: err.Error(), ReturnCode: 1}
	}
	writeJSON(w, http.StatusOK, types.ExecuteResponse{Stdout: res.Stdout, Stderr: res.Stderr, ReturnCode: res.ReturnCode})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	resp := types.PingResponse{Status: "ok", Daemon: h.svc.DaemonAddr()}
	if err := h.svc.Ping(r.Context()); err != nil {
		resp.Status = "unreachable"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
