// Package api exposes the aggregation core over a JSON REST surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerlens/ledgerlens/internal/compare"
	"github.com/ledgerlens/ledgerlens/internal/consolidate"
	"github.com/ledgerlens/ledgerlens/internal/credentials"
	"github.com/ledgerlens/ledgerlens/internal/investigate"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/ledgerlens/ledgerlens/internal/platform/httpx"
	"github.com/ledgerlens/ledgerlens/internal/shared"
	"github.com/ledgerlens/ledgerlens/internal/snapshot"
	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// EntityDirectory lists credentialed entities.
type EntityDirectory interface {
	ListEntities(ctx context.Context) ([]credentials.Entity, error)
}

// TrialBalances builds one entity's trial balance.
type TrialBalances interface {
	Build(ctx context.Context, entityID int64, entityName string, asOf time.Time) (trialbalance.TrialBalance, error)
}

// Consolidator builds the multi-entity consolidated view.
type Consolidator interface {
	Build(ctx context.Context, asOf time.Time) (consolidate.ConsolidatedTrialBalance, error)
}

// Comparisons diffs two snapshots of one entity.
type Comparisons interface {
	Compare(ctx context.Context, entityID int64, entityName string, from, to time.Time, accountFilter string) (compare.PeriodComparison, error)
}

// Investigations triages an out-of-balance trial balance.
type Investigations interface {
	Investigate(tb trialbalance.TrialBalance, focusAccount, analysisDepth string) investigate.Report
}

// Snapshots lists archived trial balances.
type Snapshots interface {
	ListByEntity(ctx context.Context, entityID int64, limit int) ([]snapshot.Record, error)
}

// WarmupEnqueuer schedules a consolidation warmup job.
type WarmupEnqueuer interface {
	EnqueueWarmup(ctx context.Context, date string) (string, error)
}

// Handler wires the REST endpoints.
type Handler struct {
	logger        *slog.Logger
	validate      *validator.Validate
	directory     EntityDirectory
	trialBalances TrialBalances
	consolidator  Consolidator
	comparisons   Comparisons
	investigator  Investigations
	snapshots     Snapshots
	enqueuer      WarmupEnqueuer
	consolCache   *consolCache
}

// HandlerParams groups the handler dependencies.
type HandlerParams struct {
	Logger        *slog.Logger
	Directory     EntityDirectory
	TrialBalances TrialBalances
	Consolidator  Consolidator
	Comparisons   Comparisons
	Investigator  Investigations
	Snapshots     Snapshots
	Enqueuer      WarmupEnqueuer
	Cache         ViewCache
	CacheTTL      time.Duration
}

// NewHandler constructs the API handler.
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		logger:        params.Logger,
		validate:      validator.New(),
		directory:     params.Directory,
		trialBalances: params.TrialBalances,
		consolidator:  params.Consolidator,
		comparisons:   params.Comparisons,
		investigator:  params.Investigator,
		snapshots:     params.Snapshots,
		enqueuer:      params.Enqueuer,
		consolCache:   newConsolCache(params.Cache, params.CacheTTL),
	}
}

// MountRoutes registers all API routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entities", h.handleListEntities)
	r.Get("/entities/{entityID}/trial-balance", h.handleTrialBalance)
	r.Get("/entities/{entityID}/compare", h.handleCompare)
	r.Get("/entities/{entityID}/snapshots", h.handleSnapshots)
	r.Post("/entities/{entityID}/investigate", h.handleInvestigate)
	r.Get("/trial-balance/consolidated", h.handleConsolidated)
	r.Post("/jobs/consolidation-warmup", h.handleEnqueueWarmup)
}

func (h *Handler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.directory.ListEntities(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entities": entities})
}

type trialBalanceQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.resolveEntity(w, r)
	if !ok {
		return
	}
	asOf, ok := h.parseDateParam(w, r, "date", shared.Today())
	if !ok {
		return
	}

	tb, err := h.trialBalances.Build(r.Context(), entity.ID, entity.Name, asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) handleConsolidated(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseDateParam(w, r, "date", shared.Today())
	if !ok {
		return
	}

	result, err := h.consolCache.get(r.Context(), asOf, h.consolidator.Build)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.resolveEntity(w, r)
	if !ok {
		return
	}

	fromRaw := r.URL.Query().Get("from")
	if fromRaw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from date is required")
		return
	}
	from, err := shared.ParseISODate(fromRaw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var to time.Time
	if toRaw := r.URL.Query().Get("to"); toRaw != "" {
		if to, err = shared.ParseISODate(toRaw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}

	result, err := h.comparisons.Compare(r.Context(), entity.ID, entity.Name, from, to, r.URL.Query().Get("account"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type investigateRequest struct {
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	FocusAccount  string `json:"focusAccount"`
	AnalysisDepth string `json:"analysisDepth" validate:"omitempty,oneof=shallow standard deep"`
}

func (h *Handler) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.resolveEntity(w, r)
	if !ok {
		return
	}

	var req investigateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	asOf := shared.Today()
	if req.Date != "" {
		parsed, err := shared.ParseISODate(req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		asOf = parsed
	}

	tb, err := h.trialBalances.Build(r.Context(), entity.ID, entity.Name, asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.investigator.Investigate(tb, req.FocusAccount, req.AnalysisDepth))
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.resolveEntity(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	records, err := h.snapshots.ListByEntity(r.Context(), entity.ID, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"snapshots": records})
}

type warmupRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handleEnqueueWarmup(w http.ResponseWriter, r *http.Request) {
	var req warmupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	taskID, err := h.enqueuer.EnqueueWarmup(r.Context(), req.Date)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

// resolveEntity parses the entityID route param and checks the directory.
func (h *Handler) resolveEntity(w http.ResponseWriter, r *http.Request) (credentials.Entity, bool) {
	raw := chi.URLParam(r, "entityID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("invalid entity id %q", raw))
		return credentials.Entity{}, false
	}

	entities, err := h.directory.ListEntities(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return credentials.Entity{}, false
	}
	for _, entity := range entities {
		if entity.ID == id {
			return entity, true
		}
	}
	httpx.Problem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("entity %d is not connected", id))
	return credentials.Entity{}, false
}

func (h *Handler) parseDateParam(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	if err := h.validate.Var(raw, "datetime=2006-01-02"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD", name, raw))
		return time.Time{}, false
	}
	parsed, _ := shared.ParseISODate(raw)
	return parsed, true
}

// respondError maps domain failures onto the error taxonomy.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}

	var fetchErr *ledger.FetchError
	switch {
	case errors.Is(err, credentials.ErrEntityUnresolvable):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, compare.ErrFromDateRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &fetchErr):
		httpx.Problem(w, http.StatusBadGateway, "Upstream Failure", fetchErr.Error())
	case errors.Is(err, snapshot.ErrSnapshotExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
