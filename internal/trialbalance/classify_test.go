package trialbalance

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
)

func TestClassifyReportProducesOneRecordPerUsableRow(t *testing.T) {
	report := ledger.Report{
		Kind: ledger.ReportBalanceSheet,
		Sections: []ledger.Section{
			{Title: "Bank Accounts", Rows: []ledger.Row{
				{Name: "Operating Account", Amount: "12500.75"},
				{Name: "Total Bank", Amount: "12500.75"},
			}},
			{Title: "Current Assets", Rows: []ledger.Row{
				{Name: "Accounts Receivable", Amount: "4300"},
				{Name: "Prepayments", Amount: "0"},
			}},
			{Title: "Liabilities", Rows: []ledger.Row{
				{Name: "Accounts Payable", Amount: "2100.50"},
			}},
			{Title: "Equity", Rows: []ledger.Row{
				{Name: "Retained Earnings", Amount: "14700.25"},
			}},
		},
	}

	records := ClassifyReport(report)
	if len(records) != 4 {
		t.Fatalf("expected 4 records got %d", len(records))
	}
	if records[0].Name != "Operating Account" || !records[0].Balance.Equal(decimal.RequireFromString("12500.75")) {
		t.Fatalf("first record mismatch: %+v", records[0])
	}
	if records[0].Category != CategoryAsset {
		t.Fatalf("bank section should classify as asset, got %s", records[0].Category)
	}
	if records[2].Category != CategoryLiability {
		t.Fatalf("expected liability got %s", records[2].Category)
	}
	if records[3].Category != CategoryEquity {
		t.Fatalf("expected equity got %s", records[3].Category)
	}
}

func TestClassifySectionKeywordPriority(t *testing.T) {
	cases := []struct {
		title string
		want  Category
	}{
		{"Bank Accounts", CategoryAsset},
		{"Fixed Assets", CategoryAsset},
		{"Non-Current Liabilities", CategoryLiability},
		{"Owner's Equity", CategoryEquity},
		{"Operating Income", CategoryRevenue},
		{"Other Revenue", CategoryRevenue},
		{"Operating Expenses", CategoryExpense},
		{"Cost of Sales", CategoryExpense},
		{"Notes to the Accounts", CategoryUnclassified},
	}
	for _, tc := range cases {
		if got := classifySection(tc.title); got != tc.want {
			t.Fatalf("classifySection(%q) = %s want %s", tc.title, got, tc.want)
		}
	}
}

func TestClassifyRowSkipsMalformedAmounts(t *testing.T) {
	report := ledger.Report{Sections: []ledger.Section{
		{Title: "Assets", Rows: []ledger.Row{
			{Name: "Good", Amount: "1,250.00"},
			{Name: "Blank", Amount: ""},
			{Name: "Garbage", Amount: "n/a"},
		}},
	}}

	records := ClassifyReport(report)
	if len(records) != 1 {
		t.Fatalf("expected 1 record got %d", len(records))
	}
	if !records[0].Balance.Equal(decimal.RequireFromString("1250.00")) {
		t.Fatalf("comma-grouped amount parsed wrong: %s", records[0].Balance)
	}
}

func TestDebitCreditSignLaw(t *testing.T) {
	amounts := []string{"5000", "-5000", "0.01", "-123456.78"}
	categories := []Category{CategoryAsset, CategoryLiability, CategoryEquity, CategoryRevenue, CategoryExpense, CategoryUnclassified}

	for _, category := range categories {
		for _, raw := range amounts {
			balance := decimal.RequireFromString(raw)
			debit, credit := splitDebitCredit(category, balance)
			if debit.IsNegative() || credit.IsNegative() {
				t.Fatalf("%s %s: negative side debit=%s credit=%s", category, raw, debit, credit)
			}
			if !debit.IsZero() && !credit.IsZero() {
				t.Fatalf("%s %s: both sides nonzero", category, raw)
			}
			switch category {
			case CategoryAsset, CategoryExpense, CategoryUnclassified:
				if !debit.Sub(credit).Equal(balance) {
					t.Fatalf("%s %s: debit-credit != balance", category, raw)
				}
			default:
				if !credit.Sub(debit).Equal(balance) {
					t.Fatalf("%s %s: credit-debit != balance", category, raw)
				}
			}
		}
	}
}

func TestUnclassifiedSectionsAreKeptVisible(t *testing.T) {
	report := ledger.Report{Sections: []ledger.Section{
		{Title: "Tracking Categories", Rows: []ledger.Row{
			{Name: "Region North", Amount: "900"},
		}},
	}}

	records := ClassifyReport(report)
	if len(records) != 1 {
		t.Fatalf("expected unclassified record got %d", len(records))
	}
	if records[0].Category != CategoryUnclassified {
		t.Fatalf("expected unclassified got %s", records[0].Category)
	}
}
