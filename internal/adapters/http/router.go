package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/divinegpt/divinegpt/internal/config"
	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
	"github.com/divinegpt/divinegpt/internal/observability/metrics"
)

const (
	maxJSONBodyBytes   = 1 << 20
	maxUploadBodyBytes = 32 << 20
)

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

type Router struct {
	cfg      config.Config
	answers  ports.AnswerService
	ingest   ports.DatasetIngestor
	datasets ports.DatasetReader
	catalog  ports.CorpusCatalog

	metrics   *metrics.HTTPServerMetrics
	validator *requestValidator
	logger    *slog.Logger
}

func NewRouter(
	cfg config.Config,
	answers ports.AnswerService,
	ingest ports.DatasetIngestor,
	datasets ports.DatasetReader,
	catalog ports.CorpusCatalog,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:      cfg,
		answers:  answers,
		ingest:   ingest,
		datasets: datasets,
		catalog:  catalog,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if cfg.OpenAPIValidation {
		validator, err := newRequestValidator()
		if err != nil {
			rt.logger.Error("openapi_validation_disabled", "error", err)
		} else {
			rt.validator = validator
		}
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/answer", rt.answer)
	api.HandleFunc("POST /ask", rt.ask)
	api.HandleFunc("GET /v1/corpora", rt.listCorpora)
	api.HandleFunc("POST /v1/datasets", rt.uploadDataset)
	api.HandleFunc("GET /v1/datasets/{id}", rt.getDatasetByID)

	var onLimited func(*http.Request)
	if rt.metrics != nil {
		onLimited = func(r *http.Request) { rt.metrics.RecordRateLimited(r.URL.Path) }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /status", rt.status)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/", rateLimitMiddleware(api, rt.cfg.HTTPRateLimitRPS, rt.cfg.HTTPRateLimitBurst, onLimited))

	var handler http.Handler = recoverMiddleware(mux)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.serviceName(), handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": rt.serviceName(),
		"port":    rt.cfg.APIPort,
		"status":  "running",
	})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	var req domain.AnswerRequest
	if !rt.decodeJSON(w, r, "AnswerRequest", &req) {
		return
	}

	result, err := rt.answers.Answer(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listCorpora(w http.ResponseWriter, _ *http.Request) {
	corpora := []domain.Corpus{}
	if rt.catalog != nil {
		corpora = rt.catalog.Corpora()
	}
	writeJSON(w, http.StatusOK, map[string]any{"corpora": corpora})
}

func (rt *Router) uploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodyBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload dataset", errors.New("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	corpus := strings.TrimSpace(r.FormValue("corpus"))
	if corpus == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload dataset", errors.New("multipart field 'corpus' is required")))
		return
	}

	dataset, err := rt.ingest.Upload(
		r.Context(),
		corpus,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dataset)
}

func (rt *Router) getDatasetByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "get dataset", errors.New("dataset id is required")))
		return
	}

	dataset, err := rt.datasets.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset)
}

// decodeJSON validates the body against the named schema, then decodes it.
// It writes the error response itself and reports whether to continue.
func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, schema string, out any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read request", err))
		return false
	}
	if err := rt.validator.validate(schema, body); err != nil {
		rt.writeError(w, r, err)
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json")))
		return false
	}
	return true
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		rt.logger.Error("http_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		if status == http.StatusServiceUnavailable {
			message = "guidance is temporarily unavailable, please retry"
		} else {
			message = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Error: message, RequestID: requestIDFromContext(r.Context())})
}

func (rt *Router) serviceName() string {
	if rt.cfg.ServiceName == "" {
		return "divinegpt"
	}
	return rt.cfg.ServiceName
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
