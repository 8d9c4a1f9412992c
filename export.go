package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// LedgerExportVersion is written into every backup
const LedgerExportVersion = "1.0"

// LedgerExport is a full JSON backup of the ledger
type LedgerExport struct {
	Transactions       []Transaction       `json:"transactions"`
	Balances           BucketBalances      `json:"balances"`
	Allocations        BucketAllocation    `json:"allocations"`
	RepaymentSchedules []RepaymentSchedule `json:"repaymentSchedules"`
	ExportedAt         time.Time           `json:"exportedAt"`
	Version            string              `json:"version"`
}

// Export snapshots the whole ledger
func (l *BucketLedger) Export(ctx context.Context) (*LedgerExport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	out := &LedgerExport{
		Transactions:       st.log,
		Balances:           st.balances,
		Allocations:        st.allocation,
		RepaymentSchedules: st.schedules,
		ExportedAt:         l.now(),
		Version:            LedgerExportVersion,
	}
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	if out.RepaymentSchedules == nil {
		out.RepaymentSchedules = []RepaymentSchedule{}
	}
	return out, nil
}

// WriteJSON writes the backup as indented JSON
func (e *LedgerExport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// ParseLedgerExport decodes a JSON backup
func ParseLedgerExport(r io.Reader) (*LedgerExport, error) {
	var data LedgerExport
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, &LedgerError{Code: CodeInvalidImportData, Message: "Backup is not valid JSON", Err: err}
	}
	return &data, nil
}

// Import replaces the ledger with a backup. The backup's log must replay to
// its balances. Without clearExisting a ledger that already has entries is
// left alone.
func (l *BucketLedger) Import(ctx context.Context, data *LedgerExport, clearExisting bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if data == nil || data.Version == "" {
		return l.reject("import", ledgerErr(CodeInvalidImportData, "Backup has no version"), BucketNone, decimal.Zero)
	}
	if data.Version != LedgerExportVersion {
		return l.reject("import", ledgerErr(CodeInvalidImportData, "Unsupported backup version %q", data.Version), BucketNone, decimal.Zero)
	}
	if err := VerifyLog(data.Transactions); err != nil {
		return l.reject("import", &LedgerError{Code: CodeLedgerCorrupt, Message: "Backup log is inconsistent", Err: err}, BucketNone, decimal.Zero)
	}
	if replayed := ReplayBalances(data.Transactions); !replayed.SameAmounts(data.Balances) {
		return l.reject("import", ledgerErr(CodeLedgerCorrupt,
			"Backup balances do not match its log (log gives foundation %s, dream %s, life %s)",
			replayed.Foundation, replayed.Dream, replayed.Life), BucketNone, decimal.Zero)
	}
	ids := make(map[string]bool, len(data.Transactions))
	for _, t := range data.Transactions {
		ids[t.ID] = true
	}
	for _, s := range data.RepaymentSchedules {
		if !ids[s.TransactionID] {
			return l.reject("import",
				ledgerErr(CodeInvalidImportData, "Schedule %s refers to unknown transaction %s", s.ID, s.TransactionID), BucketNone, decimal.Zero)
		}
	}

	current, err := l.load(ctx)
	if err != nil {
		return err
	}
	if !clearExisting && len(current.log) > 0 {
		return l.reject("import",
			ledgerErr(CodeImportConflict, "Ledger already has %d transactions; import with clearExisting to replace them", len(current.log)),
			BucketNone, decimal.Zero)
	}

	st := &ledgerState{
		balances:   data.Balances,
		log:        data.Transactions,
		allocation: data.Allocations,
		schedules:  data.RepaymentSchedules,
	}
	if err := l.commit(ctx, st, LedgerKeys...); err != nil {
		return err
	}
	l.log.WithField("transactions", len(st.log)).Info("ledger imported")
	return nil
}

// WriteLedgerXLSX writes the transaction log, balances and schedules as a
// spreadsheet
func WriteLedgerXLSX(w io.Writer, data *LedgerExport) error {
	f := excelize.NewFile()
	defer f.Close()
	sw := &sheetWriter{f: f}

	const txnSheet = "Transactions"
	if err := f.SetSheetName("Sheet1", txnSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	headers := []string{"Date", "Type", "Category", "Amount", "From", "To", "Reason", "Foundation", "Dream", "Life", "ID"}
	for i, h := range headers {
		sw.set(txnSheet, fmt.Sprintf("%c1", 'A'+i), h)
	}
	for idx, t := range data.Transactions {
		row := idx + 2
		sw.set(txnSheet, fmt.Sprintf("A%d", row), t.Timestamp.Format("2006-01-02 15:04"))
		sw.set(txnSheet, fmt.Sprintf("B%d", row), t.Type.String())
		sw.set(txnSheet, fmt.Sprintf("C%d", row), t.Category.String())
		sw.set(txnSheet, fmt.Sprintf("D%d", row), t.Amount.InexactFloat64())
		sw.set(txnSheet, fmt.Sprintf("E%d", row), t.FromBucket.String())
		sw.set(txnSheet, fmt.Sprintf("F%d", row), t.ToBucket.String())
		sw.set(txnSheet, fmt.Sprintf("G%d", row), t.Reason)
		sw.set(txnSheet, fmt.Sprintf("H%d", row), t.BalancesAfter.Foundation.InexactFloat64())
		sw.set(txnSheet, fmt.Sprintf("I%d", row), t.BalancesAfter.Dream.InexactFloat64())
		sw.set(txnSheet, fmt.Sprintf("J%d", row), t.BalancesAfter.Life.InexactFloat64())
		sw.set(txnSheet, fmt.Sprintf("K%d", row), t.ID)
	}
	sw.width(txnSheet, "A", "A", 17)
	sw.width(txnSheet, "B", "C", 13)
	sw.width(txnSheet, "D", "F", 12)
	sw.width(txnSheet, "G", "G", 40)
	sw.width(txnSheet, "H", "J", 12)
	sw.width(txnSheet, "K", "K", 38)

	const balSheet = "Balances"
	if _, err := f.NewSheet(balSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	sw.set(balSheet, "A1", "Bucket")
	sw.set(balSheet, "B1", "Balance")
	sw.set(balSheet, "C1", "Monthly allocation")
	for i, b := range AllBuckets {
		row := i + 2
		sw.set(balSheet, fmt.Sprintf("A%d", row), b.Label())
		sw.set(balSheet, fmt.Sprintf("B%d", row), data.Balances.Get(b).InexactFloat64())
		sw.set(balSheet, fmt.Sprintf("C%d", row), data.Allocations.Get(b).InexactFloat64())
	}
	sw.set(balSheet, "A5", "Total")
	sw.set(balSheet, "B5", data.Balances.Total().InexactFloat64())
	sw.width(balSheet, "A", "C", 18)

	const schedSheet = "Repayments"
	if _, err := f.NewSheet(schedSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	schedHeaders := []string{"Schedule", "From", "To", "Total", "Monthly", "Repaid", "Payments", "Status", "Next due"}
	for i, h := range schedHeaders {
		sw.set(schedSheet, fmt.Sprintf("%c1", 'A'+i), h)
	}
	for idx, s := range data.RepaymentSchedules {
		row := idx + 2
		sw.set(schedSheet, fmt.Sprintf("A%d", row), s.ID)
		sw.set(schedSheet, fmt.Sprintf("B%d", row), s.FromBucket.String())
		sw.set(schedSheet, fmt.Sprintf("C%d", row), s.ToBucket.String())
		sw.set(schedSheet, fmt.Sprintf("D%d", row), s.TotalAmount.InexactFloat64())
		sw.set(schedSheet, fmt.Sprintf("E%d", row), s.MonthlyAmount.InexactFloat64())
		sw.set(schedSheet, fmt.Sprintf("F%d", row), s.AmountRepaid.InexactFloat64())
		sw.set(schedSheet, fmt.Sprintf("G%d", row), fmt.Sprintf("%d/%d", s.PaymentsCompleted, s.NumberOfPayments))
		sw.set(schedSheet, fmt.Sprintf("H%d", row), s.Status.String())
		if s.Status == ScheduleActive {
			sw.set(schedSheet, fmt.Sprintf("I%d", row), s.NextDue().Format("2006-01-02"))
		}
	}
	sw.width(schedSheet, "A", "A", 46)
	sw.width(schedSheet, "B", "I", 12)

	f.SetActiveSheet(0)
	if sw.err != nil {
		return fmt.Errorf("fill sheet: %w", sw.err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// sheetWriter keeps the first cell or column error and skips every call after
// it
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (s *sheetWriter) set(sheet, cell string, value any) {
	if s.err == nil {
		s.err = s.f.SetCellValue(sheet, cell, value)
	}
}

func (s *sheetWriter) width(sheet, startCol, endCol string, width float64) {
	if s.err == nil {
		s.err = s.f.SetColWidth(sheet, startCol, endCol, width)
	}
}
