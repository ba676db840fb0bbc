package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/compare"
	"github.com/ledgerlens/ledgerlens/internal/consolidate"
	"github.com/ledgerlens/ledgerlens/internal/credentials"
	"github.com/ledgerlens/ledgerlens/internal/investigate"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/ledgerlens/ledgerlens/internal/snapshot"
	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

type stubDirectory struct {
	entities []credentials.Entity
	err      error
}

func (s *stubDirectory) ListEntities(ctx context.Context) ([]credentials.Entity, error) {
	return s.entities, s.err
}

type stubTrialBalances struct {
	tb  trialbalance.TrialBalance
	err error
}

func (s *stubTrialBalances) Build(ctx context.Context, entityID int64, entityName string, asOf time.Time) (trialbalance.TrialBalance, error) {
	if s.err != nil {
		return trialbalance.TrialBalance{}, s.err
	}
	tb := s.tb
	tb.EntityID = entityID
	tb.EntityName = entityName
	tb.AsOf = asOf
	return tb, nil
}

type stubConsolidator struct {
	result consolidate.ConsolidatedTrialBalance
	calls  int
	err    error
}

func (s *stubConsolidator) Build(ctx context.Context, asOf time.Time) (consolidate.ConsolidatedTrialBalance, error) {
	s.calls++
	if s.err != nil {
		return consolidate.ConsolidatedTrialBalance{}, s.err
	}
	s.result.AsOf = asOf
	return s.result, nil
}

type stubComparisons struct {
	result compare.PeriodComparison
	err    error
}

func (s *stubComparisons) Compare(ctx context.Context, entityID int64, entityName string, from, to time.Time, accountFilter string) (compare.PeriodComparison, error) {
	if s.err != nil {
		return compare.PeriodComparison{}, s.err
	}
	s.result.EntityID = entityID
	return s.result, nil
}

type stubSnapshots struct {
	records []snapshot.Record
	err     error
}

func (s *stubSnapshots) ListByEntity(ctx context.Context, entityID int64, limit int) ([]snapshot.Record, error) {
	return s.records, s.err
}

type stubEnqueuer struct {
	taskID string
	date   string
	err    error
}

func (s *stubEnqueuer) EnqueueWarmup(ctx context.Context, date string) (string, error) {
	s.date = date
	return s.taskID, s.err
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		h.MountRoutes(r)
	})
	return r
}

func defaultParams() HandlerParams {
	return HandlerParams{
		Directory:     &stubDirectory{entities: []credentials.Entity{{ID: 1, Name: "Alpha", Enabled: true}}},
		TrialBalances: &stubTrialBalances{},
		Consolidator:  &stubConsolidator{},
		Comparisons:   &stubComparisons{},
		Investigator:  investigate.NewInvestigator(),
		Snapshots:     &stubSnapshots{},
		Enqueuer:      &stubEnqueuer{taskID: "task-1"},
	}
}

func TestGetTrialBalance(t *testing.T) {
	params := defaultParams()
	router := newTestRouter(NewHandler(params))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/1/trial-balance?date=2026-06-30", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var tb trialbalance.TrialBalance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tb))
	require.Equal(t, int64(1), tb.EntityID)
	require.Equal(t, "Alpha", tb.EntityName)
	require.Equal(t, "2026-06-30", tb.AsOf.Format("2006-01-02"))
}

func TestGetTrialBalanceUnknownEntity(t *testing.T) {
	router := newTestRouter(NewHandler(defaultParams()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/99/trial-balance", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTrialBalanceInvalidDate(t *testing.T) {
	router := newTestRouter(NewHandler(defaultParams()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/1/trial-balance?date=June", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTrialBalanceUpstreamFailure(t *testing.T) {
	params := defaultParams()
	params.TrialBalances = &stubTrialBalances{err: &ledger.FetchError{
		EntityID: 1, Kind: ledger.ReportBalanceSheet, Err: errors.New("gateway timeout"),
	}}
	router := newTestRouter(NewHandler(params))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/1/trial-balance", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCompareRequiresFrom(t *testing.T) {
	router := newTestRouter(NewHandler(defaultParams()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/1/compare", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "from date is required")
}

func TestCompareHappyPath(t *testing.T) {
	params := defaultParams()
	params.Comparisons = &stubComparisons{result: compare.PeriodComparison{Basis: compare.BasisNote}}
	router := newTestRouter(NewHandler(params))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/1/compare?from=2026-01-31&to=2026-06-30&account=loan", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result compare.PeriodComparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, int64(1), result.EntityID)
	require.NotEmpty(t, result.Basis)
}

func TestConsolidatedUsesSingleflightAndCache(t *testing.T) {
	params := defaultParams()
	consolidator := &stubConsolidator{result: consolidate.ConsolidatedTrialBalance{
		Summary: consolidate.Summary{EntityCount: 2, AllConnected: true},
	}}
	params.Consolidator = consolidator
	params.Cache = newMemoryCache()
	router := newTestRouter(NewHandler(params))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trial-balance/consolidated?date=2026-06-30", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 1, consolidator.calls)
}

func TestInvestigateEndpoint(t *testing.T) {
	params := defaultParams()
	diff := decimal.NewFromInt(-50000)
	params.TrialBalances = &stubTrialBalances{tb: trialbalance.TrialBalance{
		Equity: []trialbalance.AccountRecord{{
			Name:     "Future Fund Reserve",
			Balance:  decimal.NewFromInt(25000),
			Category: trialbalance.CategoryEquity,
		}},
		BalanceCheck: trialbalance.BalanceCheck{DebitsEqualCredits: false, Difference: diff},
	}}
	router := newTestRouter(NewHandler(params))

	body := strings.NewReader(`{"date":"2026-06-30","focusAccount":"Future Fund Reserve","analysisDepth":"deep"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/entities/1/investigate", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var report investigate.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.False(t, report.Balanced)
	require.Equal(t, investigate.SeverityHigh, report.Severity)
	require.Len(t, report.Suspects, 1)
	require.Equal(t, "deep", report.AnalysisDepth)
}

func TestInvestigateRejectsBadDepth(t *testing.T) {
	router := newTestRouter(NewHandler(defaultParams()))

	body := strings.NewReader(`{"analysisDepth":"extreme"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/entities/1/investigate", body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueWarmup(t *testing.T) {
	params := defaultParams()
	enqueuer := &stubEnqueuer{taskID: "task-99"}
	params.Enqueuer = enqueuer
	router := newTestRouter(NewHandler(params))

	body := strings.NewReader(`{"date":"2026-06-30"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/consolidation-warmup", body))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "2026-06-30", enqueuer.date)
	require.Contains(t, rec.Body.String(), "task-99")
}

// memoryCache is an in-process ViewCache for handler tests.
type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.data[key]; ok {
		return data, nil
	}
	return nil, ErrCacheMiss
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}
