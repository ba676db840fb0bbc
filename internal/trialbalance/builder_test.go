package trialbalance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
)

type fakeFetcher struct {
	balanceSheet ledger.Report
	profitLoss   ledger.Report
	bsErr        error
	plErr        error
}

func (f *fakeFetcher) FetchReport(ctx context.Context, entityID int64, kind ledger.ReportKind, from, to time.Time) (ledger.Report, error) {
	if kind == ledger.ReportBalanceSheet {
		if f.bsErr != nil {
			return ledger.Report{}, f.bsErr
		}
		return f.balanceSheet, nil
	}
	if f.plErr != nil {
		return ledger.Report{}, f.plErr
	}
	return f.profitLoss, nil
}

func balancedReports() (ledger.Report, ledger.Report) {
	bs := ledger.Report{Kind: ledger.ReportBalanceSheet, Sections: []ledger.Section{
		{Title: "Bank", Rows: []ledger.Row{{Name: "Cheque Account", Amount: "60000"}}},
		{Title: "Current Assets", Rows: []ledger.Row{{Name: "Receivables", Amount: "40000"}}},
		{Title: "Liabilities", Rows: []ledger.Row{{Name: "Payables", Amount: "40000"}}},
		{Title: "Equity", Rows: []ledger.Row{{Name: "Retained Earnings", Amount: "60000"}}},
	}}
	pl := ledger.Report{Kind: ledger.ReportProfitAndLoss, Sections: []ledger.Section{
		{Title: "Income", Rows: []ledger.Row{{Name: "Sales", Amount: "25000"}}},
		{Title: "Operating Expenses", Rows: []ledger.Row{{Name: "Rent", Amount: "25000"}}},
	}}
	return bs, pl
}

func TestBuildBalancedTrialBalance(t *testing.T) {
	bs, pl := balancedReports()
	builder := NewBuilder(&fakeFetcher{balanceSheet: bs, profitLoss: pl}, nil)

	asOf := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	tb, err := builder.Build(context.Background(), 1, "Alpha Ltd", asOf)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(tb.Assets) != 2 || len(tb.Liabilities) != 1 || len(tb.Equity) != 1 {
		t.Fatalf("unexpected bucket sizes: %d/%d/%d", len(tb.Assets), len(tb.Liabilities), len(tb.Equity))
	}
	if len(tb.Revenue) != 1 || len(tb.Expenses) != 1 {
		t.Fatalf("unexpected P&L buckets: %d/%d", len(tb.Revenue), len(tb.Expenses))
	}
	if !tb.Totals.Assets.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("total assets = %s want 100000", tb.Totals.Assets)
	}
	if !tb.Totals.Debits.Equal(tb.Totals.Credits) {
		t.Fatalf("debits %s != credits %s", tb.Totals.Debits, tb.Totals.Credits)
	}
	if !tb.BalanceCheck.DebitsEqualCredits {
		t.Fatal("expected debits to equal credits")
	}
	if !tb.BalanceCheck.Difference.IsZero() {
		t.Fatalf("difference = %s want 0", tb.BalanceCheck.Difference)
	}
	if !tb.BalanceCheck.Equation.Balanced {
		t.Fatal("expected accounting equation to hold")
	}
}

func TestBuildSortsAccountsByName(t *testing.T) {
	bs := ledger.Report{Sections: []ledger.Section{
		{Title: "Assets", Rows: []ledger.Row{
			{Name: "Zulu Account", Amount: "10"},
			{Name: "Alpha Account", Amount: "20"},
			{Name: "Mike Account", Amount: "30"},
		}},
	}}
	builder := NewBuilder(&fakeFetcher{balanceSheet: bs}, nil)

	tb, err := builder.Build(context.Background(), 1, "Alpha Ltd", time.Now())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	names := []string{tb.Assets[0].Name, tb.Assets[1].Name, tb.Assets[2].Name}
	if names[0] != "Alpha Account" || names[1] != "Mike Account" || names[2] != "Zulu Account" {
		t.Fatalf("accounts not sorted: %v", names)
	}
}

func TestBuildDegradesWithoutProfitAndLoss(t *testing.T) {
	bs, _ := balancedReports()
	fetcher := &fakeFetcher{balanceSheet: bs, plErr: errors.New("upstream 502")}
	builder := NewBuilder(fetcher, nil)

	tb, err := builder.Build(context.Background(), 1, "Alpha Ltd", time.Now())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !tb.ProfitAndLossMissing {
		t.Fatal("expected partial build to be flagged")
	}
	if len(tb.Revenue) != 0 || len(tb.Expenses) != 0 {
		t.Fatal("expected empty revenue/expense buckets")
	}
	if !tb.Totals.Revenue.IsZero() || !tb.Totals.Expenses.IsZero() {
		t.Fatal("expected zero P&L totals")
	}
}

func TestBuildFailsWithoutBalanceSheet(t *testing.T) {
	cause := errors.New("connection refused")
	fetcher := &fakeFetcher{bsErr: &ledger.FetchError{EntityID: 1, Kind: ledger.ReportBalanceSheet, Err: cause}}
	builder := NewBuilder(fetcher, nil)

	_, err := builder.Build(context.Background(), 1, "Alpha Ltd", time.Now())
	if err == nil {
		t.Fatal("expected error when balance sheet fetch fails")
	}
	var fetchErr *ledger.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected underlying cause to be preserved")
	}
}

func TestBuildSurfacesUnclassifiedTotals(t *testing.T) {
	bs := ledger.Report{Sections: []ledger.Section{
		{Title: "Assets", Rows: []ledger.Row{{Name: "Cash", Amount: "500"}}},
		{Title: "Memo Items", Rows: []ledger.Row{{Name: "Committed Spend", Amount: "750"}}},
	}}
	builder := NewBuilder(&fakeFetcher{balanceSheet: bs}, nil)

	tb, err := builder.Build(context.Background(), 1, "Alpha Ltd", time.Now())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(tb.Unclassified) != 1 {
		t.Fatalf("expected 1 unclassified record got %d", len(tb.Unclassified))
	}
	if !tb.Totals.Unclassified.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("unclassified total = %s want 750", tb.Totals.Unclassified)
	}
}
