// Package consolidate rolls per-entity trial balances up into one
// consolidated multi-entity view.
package consolidate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerlens/ledgerlens/internal/credentials"
	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// TrialBalanceBuilder is the slice of the builder the engine depends on.
type TrialBalanceBuilder interface {
	Build(ctx context.Context, entityID int64, entityName string, asOf time.Time) (trialbalance.TrialBalance, error)
}

// EntityLister enumerates the currently credentialed entities.
type EntityLister interface {
	ListEntities(ctx context.Context) ([]credentials.Entity, error)
}

// Service fans trial-balance builds out across entities and sums the results.
type Service struct {
	entities EntityLister
	builder  TrialBalanceBuilder
	logger   *slog.Logger
}

// NewService constructs a consolidation service.
func NewService(entities EntityLister, builder TrialBalanceBuilder, logger *slog.Logger) *Service {
	return &Service{entities: entities, builder: builder, logger: logger}
}

// Build produces the consolidated trial balance as of the given date.
//
// Each entity is fetched concurrently; a failing entity is logged and
// excluded rather than aborting the batch. Summation runs afterwards in
// credential enumeration order, so the totals are deterministic regardless
// of goroutine completion order.
func (s *Service) Build(ctx context.Context, asOf time.Time) (ConsolidatedTrialBalance, error) {
	if s == nil || s.entities == nil || s.builder == nil {
		return ConsolidatedTrialBalance{}, errors.New("consolidate: service not initialised")
	}

	all, err := s.entities.ListEntities(ctx)
	if err != nil {
		return ConsolidatedTrialBalance{}, err
	}
	enabled := make([]credentials.Entity, 0, len(all))
	for _, entity := range all {
		if entity.Enabled {
			enabled = append(enabled, entity)
		}
	}

	results := make([]*trialbalance.TrialBalance, len(enabled))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, entity := range enabled {
		group.Go(func() error {
			tb, err := s.builder.Build(groupCtx, entity.ID, entity.Name, asOf)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("entity excluded from consolidation",
						slog.Int64("entity_id", entity.ID),
						slog.String("entity", entity.Name),
						slog.Any("error", err))
				}
				return nil
			}
			results[i] = &tb
			return nil
		})
	}
	_ = group.Wait()

	consolidated := ConsolidatedTrialBalance{AsOf: asOf, Companies: make([]CompanyView, 0, len(enabled))}
	balanced := 0
	for _, tb := range results {
		if tb == nil {
			continue
		}
		view := newCompanyView(*tb)
		consolidated.Companies = append(consolidated.Companies, view)
		consolidated.Totals = consolidated.Totals.Add(tb.Totals)
		consolidated.Summary.TotalAccounts += view.AccountCount
		if tb.BalanceCheck.DebitsEqualCredits {
			balanced++
		}
	}

	consolidated.BalanceCheck = trialbalance.NewBalanceCheck(consolidated.Totals)
	consolidated.Summary.EntityCount = len(consolidated.Companies)
	consolidated.Summary.BalancedEntities = balanced
	consolidated.Summary.AllConnected = len(consolidated.Companies) == len(enabled)
	consolidated.Summary.AllBalanced = balanced == len(consolidated.Companies)
	consolidated.Summary.ConsolidatedBalanced = consolidated.BalanceCheck.DebitsEqualCredits && consolidated.BalanceCheck.Equation.Balanced

	return consolidated, nil
}

func newCompanyView(tb trialbalance.TrialBalance) CompanyView {
	sections := make([]SectionGroup, 0, 6)
	for _, bucket := range []struct {
		category trialbalance.Category
		accounts []trialbalance.AccountRecord
	}{
		{trialbalance.CategoryAsset, tb.Assets},
		{trialbalance.CategoryLiability, tb.Liabilities},
		{trialbalance.CategoryEquity, tb.Equity},
		{trialbalance.CategoryRevenue, tb.Revenue},
		{trialbalance.CategoryExpense, tb.Expenses},
		{trialbalance.CategoryUnclassified, tb.Unclassified},
	} {
		if len(bucket.accounts) == 0 {
			continue
		}
		group := SectionGroup{Category: bucket.category, Accounts: bucket.accounts}
		for _, account := range bucket.accounts {
			group.Total = group.Total.Add(account.Balance)
		}
		sections = append(sections, group)
	}

	return CompanyView{
		EntityID:     tb.EntityID,
		EntityName:   tb.EntityName,
		TrialBalance: tb,
		Sections:     sections,
		AccountCount: tb.AccountCount(),
	}
}
