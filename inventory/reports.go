/*
reports.go - Read models

  Every function here is lock-free. A report may observe a mutation in
  flight; see the READS note in engine.go.

  Log          full ledger, newest activity first
  Summary      per system name stock picture plus open loans per holder
  DamageReport damaged entries in the order they were reported (cached)
  InitialData  what a client needs on first load
*/
package inventory

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Log returns every ledger entry, most recent activity first. Ties keep
// storage order.
func (e *Engine) Log(ctx context.Context) ([]LedgerEntry, error) {
	entries, err := e.store.ListEntries(ctx)
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	if entries == nil {
		entries = []LedgerEntry{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastActivity().After(entries[j].LastActivity())
	})
	return entries, nil
}

// SummaryRow is the stock picture of one system name.
type SummaryRow struct {
	SystemName   string          `json:"system_name"`
	DisplayName  string          `json:"display_name"`
	Category     Category        `json:"category"`
	Units        int             `json:"units"`
	InitialStock int             `json:"initial_stock"`
	Available    int             `json:"available"`
	OnLoan       int             `json:"on_loan"`
	Consumed     int             `json:"consumed"`
	Damaged      int             `json:"damaged"`
	Utilization  decimal.Decimal `json:"utilization_pct"`
}

// HolderLoans counts what one person currently has out.
type HolderLoans struct {
	HolderID   string `json:"holder_id"`
	HolderName string `json:"holder_name"`
	OpenLoans  int    `json:"open_loans"`
	Units      int    `json:"units"`
}

// Summary is the aggregate stock report.
type Summary struct {
	Rows    []SummaryRow  `json:"rows"`
	Totals  SummaryRow    `json:"totals"`
	Holders []HolderLoans `json:"holders"`
}

// Summary folds the catalog and the ledger by system name. Utilization is the
// share of initial stock currently on loan, in percent, rounded to one
// decimal place.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return Summary{}, storageErr("list items", err)
	}
	entries, err := e.store.ListEntries(ctx)
	if err != nil {
		return Summary{}, storageErr("list entries", err)
	}

	rows := []SummaryRow{}
	index := make(map[string]int)
	row := func(systemName, displayName string, category Category) *SummaryRow {
		i, ok := index[systemName]
		if !ok {
			i = len(rows)
			index[systemName] = i
			rows = append(rows, SummaryRow{SystemName: systemName, DisplayName: displayName, Category: category})
		}
		return &rows[i]
	}

	for _, it := range items {
		r := row(it.SystemName, it.DisplayName, it.Category)
		r.Units++
		r.InitialStock += it.InitialStock
		r.Available += it.CurrentStock
	}

	holders := []HolderLoans{}
	holderIndex := make(map[string]int)
	for _, entry := range entries {
		r := row(entry.SystemName, entry.DisplayName, entry.Category)
		switch entry.Status {
		case StatusIssued:
			r.OnLoan += entry.Quantity
			key := entry.HolderID
			if key == "" {
				key = "name:" + strings.ToLower(entry.HolderName)
			}
			i, ok := holderIndex[key]
			if !ok {
				i = len(holders)
				holderIndex[key] = i
				holders = append(holders, HolderLoans{HolderID: entry.HolderID, HolderName: entry.HolderName})
			}
			holders[i].OpenLoans++
			holders[i].Units += entry.Quantity
		case StatusConsumed:
			r.Consumed += entry.Quantity
		case StatusDamaged:
			r.Damaged += entry.Quantity
		}
	}

	totals := SummaryRow{SystemName: "*", DisplayName: "Total"}
	for i := range rows {
		r := &rows[i]
		r.Utilization = utilization(r.OnLoan, r.InitialStock)
		totals.Units += r.Units
		totals.InitialStock += r.InitialStock
		totals.Available += r.Available
		totals.OnLoan += r.OnLoan
		totals.Consumed += r.Consumed
		totals.Damaged += r.Damaged
	}
	totals.Utilization = utilization(totals.OnLoan, totals.InitialStock)

	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].DisplayName) < strings.ToLower(rows[j].DisplayName)
	})
	sort.SliceStable(holders, func(i, j int) bool {
		return strings.ToLower(holders[i].HolderName) < strings.ToLower(holders[j].HolderName)
	})
	return Summary{Rows: rows, Totals: totals, Holders: holders}, nil
}

func utilization(onLoan, initial int) decimal.Decimal {
	if initial <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(onLoan)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(initial))).
		Round(1)
}

// DamageReport lists damaged entries in reporting order.
func (e *Engine) DamageReport(ctx context.Context) ([]LedgerEntry, error) {
	return cached(e, DatasetDamage, func() ([]LedgerEntry, error) {
		entries, err := e.store.ListEntries(ctx)
		if err != nil {
			return nil, storageErr("list entries", err)
		}
		damaged := []LedgerEntry{}
		for _, entry := range entries {
			if entry.Status == StatusDamaged {
				damaged = append(damaged, entry)
			}
		}
		return damaged, nil
	})
}

// InitialData bundles the datasets a client loads on start.
type InitialData struct {
	Persons []Person      `json:"persons"`
	Catalog []CatalogItem `json:"catalog"`
	Damage  []LedgerEntry `json:"damage"`
}

// InitialData reads the three cached datasets.
func (e *Engine) InitialData(ctx context.Context) (InitialData, error) {
	persons, err := e.Persons(ctx)
	if err != nil {
		return InitialData{}, err
	}
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return InitialData{}, err
	}
	damage, err := e.DamageReport(ctx)
	if err != nil {
		return InitialData{}, err
	}
	return InitialData{Persons: persons, Catalog: catalog, Damage: damage}, nil
}
