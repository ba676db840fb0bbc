package ledger

import (
	"fmt"
	"time"
)

// ReportKind identifies which report the upstream accounting API should render.
type ReportKind string

const (
	// ReportBalanceSheet is the balance-sheet report endpoint.
	ReportBalanceSheet ReportKind = "balance_sheet"
	// ReportProfitAndLoss is the profit-and-loss report endpoint.
	ReportProfitAndLoss ReportKind = "profit_and_loss"
)

// Report is the hierarchical section/row tree returned by the reporting API.
type Report struct {
	Kind     ReportKind `json:"kind"`
	EntityID int64      `json:"entity_id"`
	Sections []Section  `json:"sections"`
}

// Section groups rows under a report heading such as "Current Assets".
type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Row is a single report line. Amount arrives as text and is parsed downstream.
type Row struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// FetchError describes a failed report fetch with enough context to retry.
type FetchError struct {
	EntityID int64
	Kind     ReportKind
	Date     time.Time
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("ledger: fetch %s for entity %d as of %s: %v", e.Kind, e.EntityID, e.Date.Format("2006-01-02"), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
