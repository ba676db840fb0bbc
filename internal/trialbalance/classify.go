package trialbalance

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
)

// sectionRules maps section-title keywords to categories, in priority order.
// A title is matched case-insensitively against each keyword in turn.
var sectionRules = []struct {
	keywords []string
	category Category
}{
	{keywords: []string{"bank", "asset"}, category: CategoryAsset},
	{keywords: []string{"liabilit"}, category: CategoryLiability},
	{keywords: []string{"equity"}, category: CategoryEquity},
	{keywords: []string{"income", "revenue"}, category: CategoryRevenue},
	{keywords: []string{"expense", "cost"}, category: CategoryExpense},
}

// ClassifyReport flattens a report's section/row tree into account records.
// Subtotal rows (name containing "total") and zero or unparseable amounts are
// skipped; a bad row never fails the whole report. Sections matching no
// keyword land in the unclassified bucket so data loss stays visible.
func ClassifyReport(report ledger.Report) []AccountRecord {
	records := make([]AccountRecord, 0)
	for _, section := range report.Sections {
		category := classifySection(section.Title)
		for _, row := range section.Rows {
			record, ok := classifyRow(row, section.Title, category)
			if !ok {
				continue
			}
			records = append(records, record)
		}
	}
	return records
}

func classifySection(title string) Category {
	lower := strings.ToLower(title)
	for _, rule := range sectionRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return CategoryUnclassified
}

func classifyRow(row ledger.Row, section string, category Category) (AccountRecord, bool) {
	if strings.Contains(strings.ToLower(row.Name), "total") {
		return AccountRecord{}, false
	}
	balance, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row.Amount), ",", ""))
	if err != nil || balance.IsZero() {
		return AccountRecord{}, false
	}

	debit, credit := splitDebitCredit(category, balance)
	return AccountRecord{
		Name:     row.Name,
		Balance:  balance,
		Debit:    debit,
		Credit:   credit,
		Section:  section,
		Category: category,
	}, true
}

// splitDebitCredit applies the normal-balance convention per category.
func splitDebitCredit(category Category, balance decimal.Decimal) (debit, credit decimal.Decimal) {
	zero := decimal.Zero
	switch category {
	case CategoryAsset, CategoryExpense:
		if balance.IsNegative() {
			return zero, balance.Neg()
		}
		return balance, zero
	case CategoryLiability, CategoryEquity, CategoryRevenue:
		if balance.IsNegative() {
			return balance.Neg(), zero
		}
		return zero, balance
	default:
		// Unclassified rows follow the sign only.
		if balance.IsNegative() {
			return zero, balance.Neg()
		}
		return balance, zero
	}
}
