// Package investigate applies heuristic triage rules to an out-of-balance
// trial balance. Its output is advisory only, never a proof of cause.
package investigate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// Severity grades an imbalance by magnitude.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityLow      Severity = "LOW"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var (
	criticalThreshold = decimal.NewFromInt(1000000)
	highThreshold     = decimal.NewFromInt(10000)
)

// Rule is one heuristic matcher. An account matches when its category and
// name pattern line up and its magnitude clears MinMagnitude.
type Rule struct {
	Name         string
	Category     trialbalance.Category
	NamePattern  string
	MinMagnitude decimal.Decimal
}

// DefaultRules is the stock rule set. The future-fund pattern is a known
// source of equity-side imbalances in the books this service was built for.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "future-fund-equity", Category: trialbalance.CategoryEquity, NamePattern: "future fund"},
		{Name: "suspense-account", Category: trialbalance.CategoryAsset, NamePattern: "suspense"},
		{Name: "rounding-account", Category: trialbalance.CategoryExpense, NamePattern: "rounding"},
	}
}

// Suspect is one account a rule flagged, ranked by share of the imbalance.
type Suspect struct {
	AccountName        string                `json:"accountName"`
	Category           trialbalance.Category `json:"category"`
	Balance            decimal.Decimal       `json:"balance"`
	PercentOfImbalance float64               `json:"percentOfImbalance"`
	Rule               string                `json:"rule"`
}

// Report is the narrative diagnostic for one trial balance.
type Report struct {
	Balanced         bool            `json:"balanced"`
	Severity         Severity        `json:"severity"`
	Difference       decimal.Decimal `json:"difference"`
	Message          string          `json:"message"`
	Suspects         []Suspect       `json:"suspects,omitempty"`
	SuggestedActions []string        `json:"suggestedActions,omitempty"`
	FocusAccount     string          `json:"focusAccount,omitempty"`
	AnalysisDepth    string          `json:"analysisDepth,omitempty"`
	Advisory         string          `json:"advisory"`
}

// Advisory is attached to every report so consumers treat it as triage.
const Advisory = "heuristic best-effort triage, not a proof of cause"

var suggestedActions = []string{
	"compare the two most recent snapshots for the entity",
	"review journal entries posted around the as-of date",
	"re-run the trial balance for the prior month end",
	"inspect the flagged accounts in the source ledger",
}

// Investigator evaluates rules against a trial balance.
type Investigator struct {
	rules   []Rule
	printer *message.Printer
}

// NewInvestigator builds an Investigator; with no rules the default set is used.
func NewInvestigator(rules ...Rule) *Investigator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Investigator{rules: rules, printer: message.NewPrinter(language.English)}
}

// Investigate triages one trial balance. focusAccount and analysisDepth are
// echoed back as display hints, not applied as filters.
func (inv *Investigator) Investigate(tb trialbalance.TrialBalance, focusAccount, analysisDepth string) Report {
	report := Report{
		Difference:    tb.BalanceCheck.Difference,
		FocusAccount:  focusAccount,
		AnalysisDepth: analysisDepth,
		Advisory:      Advisory,
	}

	if tb.BalanceCheck.DebitsEqualCredits {
		report.Balanced = true
		report.Severity = SeverityNone
		report.Message = "books are balanced, no action required"
		return report
	}

	magnitude := tb.BalanceCheck.Difference.Abs()
	report.Severity = severityFor(magnitude)
	report.Message = inv.printer.Sprintf("debits and credits differ by %v", number.Decimal(magnitude.InexactFloat64(), number.MaxFractionDigits(2)))
	report.Suspects = inv.findSuspects(tb, magnitude)
	report.SuggestedActions = suggestedActions
	return report
}

func severityFor(magnitude decimal.Decimal) Severity {
	switch {
	case magnitude.GreaterThan(criticalThreshold):
		return SeverityCritical
	case magnitude.GreaterThan(highThreshold):
		return SeverityHigh
	default:
		return SeverityLow
	}
}

func (inv *Investigator) findSuspects(tb trialbalance.TrialBalance, magnitude decimal.Decimal) []Suspect {
	suspects := make([]Suspect, 0)
	for _, rule := range inv.rules {
		for _, record := range bucketFor(tb, rule.Category) {
			if !strings.Contains(strings.ToLower(record.Name), strings.ToLower(rule.NamePattern)) {
				continue
			}
			if !rule.MinMagnitude.IsZero() && record.Balance.Abs().LessThan(rule.MinMagnitude) {
				continue
			}
			suspect := Suspect{
				AccountName: record.Name,
				Category:    record.Category,
				Balance:     record.Balance,
				Rule:        rule.Name,
			}
			if !magnitude.IsZero() {
				suspect.PercentOfImbalance = record.Balance.Div(magnitude).Mul(decimal.NewFromInt(100)).InexactFloat64()
			}
			suspects = append(suspects, suspect)
		}
	}
	sort.SliceStable(suspects, func(i, j int) bool {
		return suspects[i].Balance.Abs().GreaterThan(suspects[j].Balance.Abs())
	})
	return suspects
}

func bucketFor(tb trialbalance.TrialBalance, category trialbalance.Category) []trialbalance.AccountRecord {
	switch category {
	case trialbalance.CategoryAsset:
		return tb.Assets
	case trialbalance.CategoryLiability:
		return tb.Liabilities
	case trialbalance.CategoryEquity:
		return tb.Equity
	case trialbalance.CategoryRevenue:
		return tb.Revenue
	case trialbalance.CategoryExpense:
		return tb.Expenses
	default:
		return tb.Unclassified
	}
}
