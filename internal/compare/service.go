// Package compare diffs two trial-balance snapshots of one entity and
// surfaces the significant account-level movements.
package compare

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// ErrFromDateRequired rejects a comparison before any fetch is attempted.
var ErrFromDateRequired = errors.New("compare: from date is required")

var (
	changeThreshold       = decimal.NewFromInt(1000)
	significanceThreshold = decimal.NewFromInt(100000)
)

// BasisNote documents that both snapshots carry cumulative-to-date P&L
// figures, so P&L deltas are not net movement within the window unless the
// upstream system resets those accounts per fiscal year.
const BasisNote = "point-in-time snapshots; profit-and-loss figures are cumulative to date, not period activity"

// TrialBalanceBuilder is the slice of the builder the comparator depends on.
type TrialBalanceBuilder interface {
	Build(ctx context.Context, entityID int64, entityName string, asOf time.Time) (trialbalance.TrialBalance, error)
}

// Service compares two snapshots of a single entity.
type Service struct {
	builder TrialBalanceBuilder
	clock   func() time.Time
}

// NewService constructs a comparison service.
func NewService(builder TrialBalanceBuilder) *Service {
	return &Service{builder: builder, clock: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// Compare builds both snapshots and diffs them. to defaults to today when
// zero. accountFilter, when set, keeps only accounts whose name contains it
// (case-insensitive) before threshold filtering.
//
// Account-level diffing covers assets, liabilities and equity; revenue and
// expenses are compared only at aggregate level.
func (s *Service) Compare(ctx context.Context, entityID int64, entityName string, from, to time.Time, accountFilter string) (PeriodComparison, error) {
	if s == nil || s.builder == nil {
		return PeriodComparison{}, errors.New("compare: service not initialised")
	}
	if from.IsZero() {
		return PeriodComparison{}, ErrFromDateRequired
	}
	if to.IsZero() {
		to = s.clock().UTC().Truncate(24 * time.Hour)
	}

	fromTB, err := s.builder.Build(ctx, entityID, entityName, from)
	if err != nil {
		return PeriodComparison{}, err
	}
	toTB, err := s.builder.Build(ctx, entityID, entityName, to)
	if err != nil {
		return PeriodComparison{}, err
	}

	comparison := PeriodComparison{
		EntityID:   entityID,
		EntityName: entityName,
		FromPeriod: PeriodSummary{Date: from, Totals: fromTB.Totals, BalanceCheck: fromTB.BalanceCheck},
		ToPeriod:   PeriodSummary{Date: to, Totals: toTB.Totals, BalanceCheck: toTB.BalanceCheck},
		Changes:    aggregateChanges(fromTB, toTB),
		Basis:      BasisNote,
	}

	comparison.AccountChanges = diffAccounts(fromTB, toTB, accountFilter)
	comparison.SignificantChanges = significantSubset(comparison.AccountChanges)
	return comparison, nil
}

func aggregateChanges(from, to trialbalance.TrialBalance) AggregateChanges {
	return AggregateChanges{
		Debits:               to.Totals.Debits.Sub(from.Totals.Debits),
		Credits:              to.Totals.Credits.Sub(from.Totals.Credits),
		Assets:               to.Totals.Assets.Sub(from.Totals.Assets),
		Liabilities:          to.Totals.Liabilities.Sub(from.Totals.Liabilities),
		Equity:               to.Totals.Equity.Sub(from.Totals.Equity),
		Revenue:              to.Totals.Revenue.Sub(from.Totals.Revenue),
		Expenses:             to.Totals.Expenses.Sub(from.Totals.Expenses),
		BalanceStatusChanged: from.BalanceCheck.DebitsEqualCredits != to.BalanceCheck.DebitsEqualCredits,
	}
}

func diffAccounts(from, to trialbalance.TrialBalance, accountFilter string) []AccountChange {
	fromBalances := balanceSheetAccounts(from)
	toBalances := balanceSheetAccounts(to)

	names := make([]string, 0, len(fromBalances)+len(toBalances))
	seen := make(map[string]struct{}, len(fromBalances)+len(toBalances))
	for name := range fromBalances {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for name := range toBalances {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	filter := strings.ToLower(strings.TrimSpace(accountFilter))
	changes := make([]AccountChange, 0, len(names))
	for _, name := range names {
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		fromBalance, inFrom := fromBalances[name]
		toBalance, inTo := toBalances[name]

		var change AccountChange
		switch {
		case inFrom && inTo:
			delta := toBalance.Sub(fromBalance)
			if !delta.Abs().GreaterThan(changeThreshold) {
				continue
			}
			kind := ChangeIncrease
			if delta.IsNegative() {
				kind = ChangeDecrease
			}
			change = AccountChange{AccountName: name, FromBalance: fromBalance, ToBalance: toBalance, Change: delta, ChangeType: kind}
		case inTo:
			if !toBalance.Abs().GreaterThan(changeThreshold) {
				continue
			}
			change = AccountChange{AccountName: name, FromBalance: decimal.Zero, ToBalance: toBalance, Change: toBalance, ChangeType: ChangeNew}
		default:
			if !fromBalance.Abs().GreaterThan(changeThreshold) {
				continue
			}
			change = AccountChange{AccountName: name, FromBalance: fromBalance, ToBalance: decimal.Zero, Change: fromBalance.Neg(), ChangeType: ChangeRemoved}
		}
		changes = append(changes, change)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Change.Abs().GreaterThan(changes[j].Change.Abs())
	})
	return changes
}

func balanceSheetAccounts(tb trialbalance.TrialBalance) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, list := range [][]trialbalance.AccountRecord{tb.Assets, tb.Liabilities, tb.Equity} {
		for _, record := range list {
			balances[record.Name] = record.Balance
		}
	}
	return balances
}

func significantSubset(changes []AccountChange) []AccountChange {
	significant := make([]AccountChange, 0)
	for _, change := range changes {
		if change.Change.Abs().GreaterThan(significanceThreshold) {
			significant = append(significant, change)
		}
	}
	return significant
}
