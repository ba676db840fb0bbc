package trialbalance

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
)

// ReportFetcher is the slice of the ledger client the builder depends on.
type ReportFetcher interface {
	FetchReport(ctx context.Context, entityID int64, kind ledger.ReportKind, from, to time.Time) (ledger.Report, error)
}

// Builder assembles a trial balance from one balance sheet and one
// profit-and-loss report for the same entity and as-of date.
type Builder struct {
	fetcher ReportFetcher
	logger  *slog.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(fetcher ReportFetcher, logger *slog.Logger) *Builder {
	return &Builder{fetcher: fetcher, logger: logger}
}

// Build fetches and classifies both reports as of the given date.
//
// The P&L is requested for a single-day window, so its figures are a
// cumulative-to-date snapshot rather than period activity. A failed P&L
// fetch degrades to a balance-sheet-only result; a failed balance-sheet
// fetch fails the whole build.
func (b *Builder) Build(ctx context.Context, entityID int64, entityName string, asOf time.Time) (TrialBalance, error) {
	if b == nil || b.fetcher == nil {
		return TrialBalance{}, errors.New("trialbalance: builder not initialised")
	}

	balanceSheet, err := b.fetcher.FetchReport(ctx, entityID, ledger.ReportBalanceSheet, asOf, asOf)
	if err != nil {
		return TrialBalance{}, err
	}

	tb := TrialBalance{EntityID: entityID, EntityName: entityName, AsOf: asOf}
	for _, record := range ClassifyReport(balanceSheet) {
		switch record.Category {
		case CategoryAsset, CategoryLiability, CategoryEquity, CategoryUnclassified:
			tb.place(record)
		}
	}

	profitAndLoss, err := b.fetcher.FetchReport(ctx, entityID, ledger.ReportProfitAndLoss, asOf, asOf)
	if err != nil {
		tb.ProfitAndLossMissing = true
		if b.logger != nil {
			b.logger.Warn("profit and loss unavailable, returning partial trial balance",
				slog.Int64("entity_id", entityID),
				slog.String("as_of", asOf.Format("2006-01-02")),
				slog.Any("error", err))
		}
	} else {
		for _, record := range ClassifyReport(profitAndLoss) {
			switch record.Category {
			case CategoryRevenue, CategoryExpense, CategoryUnclassified:
				tb.place(record)
			}
		}
	}

	tb.finalise()
	return tb, nil
}

func (tb *TrialBalance) place(record AccountRecord) {
	switch record.Category {
	case CategoryAsset:
		tb.Assets = append(tb.Assets, record)
	case CategoryLiability:
		tb.Liabilities = append(tb.Liabilities, record)
	case CategoryEquity:
		tb.Equity = append(tb.Equity, record)
	case CategoryRevenue:
		tb.Revenue = append(tb.Revenue, record)
	case CategoryExpense:
		tb.Expenses = append(tb.Expenses, record)
	default:
		tb.Unclassified = append(tb.Unclassified, record)
	}
}

// finalise sorts account lists, accumulates totals and derives the check.
func (tb *TrialBalance) finalise() {
	if tb.Assets == nil {
		tb.Assets = []AccountRecord{}
	}
	if tb.Liabilities == nil {
		tb.Liabilities = []AccountRecord{}
	}
	if tb.Equity == nil {
		tb.Equity = []AccountRecord{}
	}
	if tb.Revenue == nil {
		tb.Revenue = []AccountRecord{}
	}
	if tb.Expenses == nil {
		tb.Expenses = []AccountRecord{}
	}

	for _, list := range [][]AccountRecord{tb.Assets, tb.Liabilities, tb.Equity, tb.Revenue, tb.Expenses, tb.Unclassified} {
		sortRecords(list)
		for _, record := range list {
			tb.Totals.Debits = tb.Totals.Debits.Add(record.Debit)
			tb.Totals.Credits = tb.Totals.Credits.Add(record.Credit)
		}
	}
	tb.Totals.Assets = sumBalances(tb.Assets)
	tb.Totals.Liabilities = sumBalances(tb.Liabilities)
	tb.Totals.Equity = sumBalances(tb.Equity)
	tb.Totals.Revenue = sumBalances(tb.Revenue)
	tb.Totals.Expenses = sumBalances(tb.Expenses)
	tb.Totals.Unclassified = sumBalances(tb.Unclassified)

	tb.BalanceCheck = NewBalanceCheck(tb.Totals)
}

func sortRecords(records []AccountRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
}

func sumBalances(records []AccountRecord) (total decimal.Decimal) {
	for _, record := range records {
		total = total.Add(record.Balance)
	}
	return total
}
