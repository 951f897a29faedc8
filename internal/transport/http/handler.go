package httptransport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/provider"
	"github.com/alexandreamato/spamanvil/internal/service"
)

// processBudget caps one on-demand queue pass so the HTTP call returns
// before upstream proxies time out.
const processBudget = 25 * time.Second

// privilegedHeader marks requests from authenticated site users; the
// upstream glue performs the capability check and sets it.
const privilegedHeader = "X-Anvil-Privileged"

// Intake is the submission entry port.
type Intake interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*service.SubmitResult, error)
	ScanBacklog(ctx context.Context) (*service.ScanReport, error)
}

// Queue exposes queue state and on-demand passes.
type Queue interface {
	Status(ctx context.Context) (*entity.QueueStatus, error)
	ProcessBatch(ctx context.Context, opts service.ProcessOptions) (service.ProcessReport, error)
}

// Reputation manages the blocked-origin list.
type Reputation interface {
	List(ctx context.Context, page, perPage int) ([]entity.OriginRecord, int, error)
	Unblock(ctx context.Context, id int64) error
}

// LogReader lists evaluation log entries.
type LogReader interface {
	List(ctx context.Context, provider string, limit, offset int) ([]entity.EvalLogEntry, int, error)
}

// Stats serves counter summaries and the threshold suggestion.
type Stats interface {
	Summary(ctx context.Context, days int) ([]service.DaySummary, map[string]int64, error)
	SuggestThreshold(ctx context.Context) (*service.Suggestion, error)
}

// ProviderBuilder builds a backend for a connection probe.
type ProviderBuilder interface {
	CreateWithOverrides(ctx context.Context, slug string, ov provider.Overrides) (provider.Provider, error)
}

type Handler struct {
	intake     Intake
	queue      Queue
	reputation Reputation
	logs       LogReader
	stats      Stats
	providers  ProviderBuilder
}

func NewHandler(intake Intake, queue Queue, reputation Reputation, logs LogReader, stats Stats, providers ProviderBuilder) *Handler {
	return &Handler{
		intake:     intake,
		queue:      queue,
		reputation: reputation,
		logs:       logs,
		stats:      stats,
		providers:  providers,
	}
}

type submitDTO struct {
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	AuthorURL   string `json:"author_url"`
	Content     string `json:"content"`
	PostTitle   string `json:"post_title"`
	PostExcerpt string `json:"post_excerpt"`
}

// Submit godoc
// @Summary Submit a comment for classification
// @Description Runs the origin gate and heuristic pre-filter, then blocks, queues or scores the submission depending on configuration.
// @Tags submissions
// @Accept json
// @Produce json
// @Param request body submitDTO true "submission payload"
// @Success 201 {object} service.SubmitResult
// @Failure 400 {object} apiError
// @Failure 403 {object} apiError
// @Failure 500 {object} apiError
// @Router /api/submissions [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var dto submitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if dto.Content == "" {
		writeErr(w, http.StatusBadRequest, "content is required")
		return
	}

	res, err := h.intake.Submit(r.Context(), service.SubmitRequest{
		AuthorName:  dto.AuthorName,
		AuthorEmail: dto.AuthorEmail,
		AuthorURL:   dto.AuthorURL,
		Content:     dto.Content,
		PostTitle:   dto.PostTitle,
		PostExcerpt: dto.PostExcerpt,
		OriginIP:    clientIP(r),
		Privileged:  r.Header.Get(privilegedHeader) == "1",
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res.Outcome == service.OutcomeBlocked {
		writeJSON(w, http.StatusForbidden, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// QueueStatus godoc
// @Summary Queue state snapshot
// @Tags queue
// @Produce json
// @Success 200 {object} entity.QueueStatus
// @Failure 500 {object} apiError
// @Router /api/queue/status [get]
func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.queue.Status(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// ProcessNow godoc
// @Summary Run one queue pass now
// @Description Runs a budget-bounded batch pass. With force=1 jobs that exhausted their retries are reclaimed too.
// @Tags queue
// @Produce json
// @Param force query bool false "also reclaim max_retries jobs"
// @Success 200 {object} service.ProcessReport
// @Failure 500 {object} apiError
// @Router /api/queue/process [post]
func (h *Handler) ProcessNow(w http.ResponseWriter, r *http.Request) {
	forced := r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true"

	report, err := h.queue.ProcessBatch(r.Context(), service.ProcessOptions{
		Forced: forced,
		Budget: processBudget,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ScanBacklog godoc
// @Summary Scan pending submissions into the queue
// @Tags queue
// @Produce json
// @Success 200 {object} service.ScanReport
// @Failure 500 {object} apiError
// @Router /api/queue/scan [post]
func (h *Handler) ScanBacklog(w http.ResponseWriter, r *http.Request) {
	report, err := h.intake.ScanBacklog(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type originListResp struct {
	Origins []entity.OriginRecord `json:"origins"`
	Total   int                   `json:"total"`
}

// ListOrigins godoc
// @Summary List blocked origins
// @Tags origins
// @Produce json
// @Param page query int false "page, starting at 1"
// @Param per_page query int false "items per page, max 100"
// @Success 200 {object} originListResp
// @Failure 500 {object} apiError
// @Router /api/origins [get]
func (h *Handler) ListOrigins(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)

	origins, total, err := h.reputation.List(r.Context(), page, perPage)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if origins == nil {
		origins = []entity.OriginRecord{}
	}
	writeJSON(w, http.StatusOK, originListResp{Origins: origins, Total: total})
}

// UnblockOrigin godoc
// @Summary Unblock an origin
// @Description Removes the origin's record entirely, resetting its escalation history.
// @Tags origins
// @Param id path int true "origin record id"
// @Success 204
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/origins/{id} [delete]
func (h *Handler) UnblockOrigin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.reputation.Unblock(r.Context(), id); err != nil {
		writeErr(w, http.StatusNotFound, "origin not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type providerTestDTO struct {
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

type providerTestResp struct {
	OK         bool   `json:"ok"`
	Model      string `json:"model,omitempty"`
	ResponseMS int64  `json:"response_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TestProvider godoc
// @Summary Probe a scoring backend
// @Description Builds the backend from stored configuration, optionally overridden inline, and runs a minimal scoring round trip.
// @Tags providers
// @Accept json
// @Produce json
// @Param slug path string true "provider slug"
// @Param request body providerTestDTO false "inline overrides for unsaved credentials"
// @Success 200 {object} providerTestResp
// @Failure 400 {object} apiError
// @Router /api/providers/{slug}/test [post]
func (h *Handler) TestProvider(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var dto providerTestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	p, err := h.providers.CreateWithOverrides(r.Context(), slug, provider.Overrides{
		APIKey:   dto.APIKey,
		Model:    dto.Model,
		Endpoint: dto.Endpoint,
	})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := p.TestConnection(r.Context())
	if err != nil {
		// The probe itself answering is a 200; the failure detail is the
		// payload the admin UI surfaces.
		writeJSON(w, http.StatusOK, providerTestResp{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, providerTestResp{OK: true, Model: res.Model, ResponseMS: res.ResponseMS})
}

type logListResp struct {
	Entries []entity.EvalLogEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// ListLogs godoc
// @Summary List evaluation log entries
// @Tags logs
// @Produce json
// @Param provider query string false "filter by provider slug"
// @Param page query int false "page, starting at 1"
// @Param per_page query int false "items per page, max 100"
// @Success 200 {object} logListResp
// @Failure 500 {object} apiError
// @Router /api/logs [get]
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	entries, total, err := h.logs.List(r.Context(), r.URL.Query().Get("provider"), perPage, (page-1)*perPage)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []entity.EvalLogEntry{}
	}
	writeJSON(w, http.StatusOK, logListResp{Entries: entries, Total: total})
}

type statsResp struct {
	Days   []service.DaySummary `json:"days"`
	Totals map[string]int64     `json:"totals"`
}

// StatsSummary godoc
// @Summary Daily counter summary
// @Tags stats
// @Produce json
// @Param days query int false "window in days, default 7"
// @Success 200 {object} statsResp
// @Failure 500 {object} apiError
// @Router /api/stats [get]
func (h *Handler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	days, totals, err := h.stats.Summary(r.Context(), queryInt(r, "days", 7))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statsResp{Days: days, Totals: totals})
}

// SuggestThreshold godoc
// @Summary Suggest a spam threshold from logged outcomes
// @Tags stats
// @Produce json
// @Success 200 {object} service.Suggestion
// @Failure 422 {object} apiError
// @Failure 500 {object} apiError
// @Router /api/stats/suggestion [get]
func (h *Handler) SuggestThreshold(w http.ResponseWriter, r *http.Request) {
	suggestion, err := h.stats.SuggestThreshold(r.Context())
	if err != nil {
		var insufficient *service.ErrInsufficientData
		if errors.As(err, &insufficient) {
			writeErr(w, http.StatusUnprocessableEntity, insufficient.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// clientIP returns the request origin. middleware.RealIP has already
// folded X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
