// internal/export/export.go

// Package export writes the dashboard's transaction history as CSV or JSON.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/storage"
	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

const storePageSize = 500

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	StartTime    time.Time
	EndTime      time.Time
	WalletFilter string
	ActionFilter string // deposit, borrow, repay, withdraw, liquidate
	StatusFilter string // pending, confirmed, failed
	OutputDir    string
}

// TransactionExporter handles history export
type TransactionExporter struct {
	logger *zap.Logger
}

// NewTransactionExporter creates a new exporter
func NewTransactionExporter(logger *zap.Logger) *TransactionExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionExporter{logger: logger}
}

// CSVHeaders returns the column names of the CSV export.
func CSVHeaders() []string {
	return []string{
		"time", "digest", "wallet", "action", "token", "amount", "amount_raw",
		"status", "gas_used_sui", "checkpoint", "confirmed_at", "error",
	}
}

func csvRow(tx *models.Transaction) []string {
	confirmed := ""
	if tx.ConfirmedAt != nil {
		confirmed = tx.ConfirmedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		tx.CreatedAt.UTC().Format(time.RFC3339),
		tx.Digest,
		tx.WalletAddress,
		tx.Action,
		tx.Token,
		tx.Amount,
		tx.AmountRaw,
		tx.Status,
		gasUsed(tx).String(),
		tx.Checkpoint,
		confirmed,
		tx.ErrorMessage,
	}
}

func gasUsed(tx *models.Transaction) amount.TokenAmount {
	if tx.GasUsedRaw == "" {
		return amount.SUI.Zero()
	}
	gas, err := amount.SUI.FromRaw(tx.GasUsedRaw)
	if err != nil {
		return amount.SUI.Zero()
	}
	return gas
}

// ExportFromStore reads every matching record from store and exports it.
func (te *TransactionExporter) ExportFromStore(ctx context.Context, store storage.Storage, options ExportOptions) (string, error) {
	txs, err := Load(ctx, store, options)
	if err != nil {
		return "", err
	}
	return te.ExportTransactions(txs, options)
}

// Load pages through store with the options as a filter.
func Load(ctx context.Context, store storage.Storage, options ExportOptions) ([]*models.Transaction, error) {
	filter := storage.Filter{
		Wallet: options.WalletFilter,
		Action: options.ActionFilter,
		Status: options.StatusFilter,
		Since:  options.StartTime,
		Until:  options.EndTime,
		Limit:  storePageSize,
	}

	var all []*models.Transaction
	for {
		page, err := store.FindTransactions(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
		all = append(all, page...)
		if len(page) < storePageSize {
			return all, nil
		}
		filter.Offset += len(page)
	}
}

// ExportTransactions filters txs, writes them under OutputDir and returns the path.
func (te *TransactionExporter) ExportTransactions(txs []*models.Transaction, options ExportOptions) (string, error) {
	filtered := te.filterTransactions(txs, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no transactions match the export criteria")
	}

	filename := te.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := te.write(file, filtered, options.Format); err != nil {
		return "", err
	}

	te.logger.Info("Transactions exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// Write filters txs and writes them to w.
func (te *TransactionExporter) Write(w io.Writer, txs []*models.Transaction, options ExportOptions) error {
	return te.write(w, te.filterTransactions(txs, options), options.Format)
}

func (te *TransactionExporter) write(w io.Writer, txs []*models.Transaction, format ExportFormat) error {
	switch format {
	case FormatCSV:
		return te.writeCSV(w, txs)
	case FormatJSON:
		return te.writeJSON(w, txs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// filterTransactions применяет фильтры и сортирует по времени
func (te *TransactionExporter) filterTransactions(txs []*models.Transaction, options ExportOptions) []*models.Transaction {
	var filtered []*models.Transaction

	for _, tx := range txs {
		if !options.StartTime.IsZero() && tx.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && tx.CreatedAt.After(options.EndTime) {
			continue
		}
		if options.WalletFilter != "" && tx.WalletAddress != options.WalletFilter {
			continue
		}
		if options.ActionFilter != "" && tx.Action != options.ActionFilter {
			continue
		}
		if options.StatusFilter != "" && tx.Status != options.StatusFilter {
			continue
		}
		filtered = append(filtered, tx)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	return filtered
}

// generateFilename creates a filename based on export options
func (te *TransactionExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "transactions_all"
	if options.ActionFilter != "" {
		prefix = "transactions_" + options.ActionFilter
	}
	if options.StatusFilter != "" {
		prefix += "_" + options.StatusFilter
	}
	if w := options.WalletFilter; w != "" {
		if len(w) > 10 {
			w = w[:10]
		}
		prefix += "_" + w
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func (te *TransactionExporter) writeCSV(w io.Writer, txs []*models.Transaction) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, tx := range txs {
		if err := writer.Write(csvRow(tx)); err != nil {
			return fmt.Errorf("failed to write transaction: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Record is the JSON form of one transaction.
type Record struct {
	Time        time.Time  `json:"time"`
	Digest      string     `json:"digest,omitempty"`
	Wallet      string     `json:"wallet"`
	Action      string     `json:"action"`
	Token       string     `json:"token"`
	Amount      string     `json:"amount"`
	AmountRaw   string     `json:"amount_raw"`
	Status      string     `json:"status"`
	GasUsed     string     `json:"gas_used_sui"`
	Checkpoint  string     `json:"checkpoint,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func toRecord(tx *models.Transaction) Record {
	return Record{
		Time:        tx.CreatedAt.UTC(),
		Digest:      tx.Digest,
		Wallet:      tx.WalletAddress,
		Action:      tx.Action,
		Token:       tx.Token,
		Amount:      tx.Amount,
		AmountRaw:   tx.AmountRaw,
		Status:      tx.Status,
		GasUsed:     gasUsed(tx).String(),
		Checkpoint:  tx.Checkpoint,
		ConfirmedAt: tx.ConfirmedAt,
		Error:       tx.ErrorMessage,
	}
}

func (te *TransactionExporter) writeJSON(w io.Writer, txs []*models.Transaction) error {
	records := make([]Record, 0, len(txs))
	for _, tx := range txs {
		records = append(records, toRecord(tx))
	}

	exportData := struct {
		ExportTime       time.Time     `json:"export_time"`
		TransactionCount int           `json:"transaction_count"`
		Transactions     []Record      `json:"transactions"`
		Summary          ExportSummary `json:"summary"`
	}{
		ExportTime:       time.Now().UTC(),
		TransactionCount: len(records),
		Transactions:     records,
		Summary:          te.calculateSummary(txs),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported transactions.
// Volumes count confirmed transactions only and are exact decimal strings.
type ExportSummary struct {
	TotalTransactions int               `json:"total_transactions"`
	Confirmed         int               `json:"confirmed"`
	Failed            int               `json:"failed"`
	Pending           int               `json:"pending"`
	ByAction          map[string]int    `json:"by_action"`
	Volume            map[string]string `json:"volume"` // action -> amount
	TotalGasSUI       string            `json:"total_gas_sui"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
}

// calculateSummary считает итоги; суммы ведутся в базовых единицах без float
func (te *TransactionExporter) calculateSummary(txs []*models.Transaction) ExportSummary {
	summary := ExportSummary{
		TotalTransactions: len(txs),
		ByAction:          make(map[string]int),
		Volume:            make(map[string]string),
		TotalGasSUI:       "0",
	}
	if len(txs) == 0 {
		return summary
	}

	summary.StartDate = txs[0].CreatedAt.UTC()
	summary.EndDate = txs[len(txs)-1].CreatedAt.UTC()

	volumes := make(map[string]amount.TokenAmount)
	gas := amount.SUI.Zero()

	for _, tx := range txs {
		summary.ByAction[tx.Action]++

		switch tx.Status {
		case models.StatusConfirmed:
			summary.Confirmed++
		case models.StatusFailed:
			summary.Failed++
		default:
			summary.Pending++
		}

		if total, err := gas.Add(gasUsed(tx)); err == nil {
			gas = total
		}

		if tx.Status != models.StatusConfirmed {
			continue
		}
		// SUI и SUSD имеют по 9 знаков, поэтому суммы по действию совместимы
		amt, err := amount.FromRawString(tx.AmountRaw, amount.SUI.Decimals)
		if err != nil {
			te.logger.Debug("Skipping unparsable amount", zap.String("digest", tx.Digest), zap.Error(err))
			continue
		}
		if prev, ok := volumes[tx.Action]; ok {
			if sum, err := prev.Add(amt); err == nil {
				volumes[tx.Action] = sum
			}
		} else {
			volumes[tx.Action] = amt
		}
	}

	for action, v := range volumes {
		summary.Volume[action] = v.String()
	}
	summary.TotalGasSUI = gas.String()
	return summary
}

// DailyReport is a one-day summary with an hourly breakdown.
type DailyReport struct {
	Date            time.Time     `json:"date"`
	Count           int           `json:"transaction_count"`
	Summary         ExportSummary `json:"summary"`
	HourlyBreakdown []HourlyStats `json:"hourly_breakdown"`
	Transactions    []Record      `json:"transactions"`
}

// HourlyStats represents activity within one hour
type HourlyStats struct {
	Hour      int            `json:"hour"`
	Count     int            `json:"transaction_count"`
	Confirmed int            `json:"confirmed"`
	ByAction  map[string]int `json:"by_action"`
}

// ExportDailyReport writes the report of date's transactions. An empty day
// returns an empty path and no error.
func (te *TransactionExporter) ExportDailyReport(txs []*models.Transaction, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour).Add(-time.Nanosecond)

	filtered := te.filterTransactions(txs, ExportOptions{StartTime: startOfDay, EndTime: endOfDay})
	if len(filtered) == 0 {
		te.logger.Info("No transactions for daily report", zap.Time("date", startOfDay))
		return "", nil
	}

	records := make([]Record, 0, len(filtered))
	for _, tx := range filtered {
		records = append(records, toRecord(tx))
	}
	report := DailyReport{
		Date:            startOfDay,
		Count:           len(filtered),
		Summary:         te.calculateSummary(filtered),
		HourlyBreakdown: te.calculateHourlyBreakdown(filtered, date.Location()),
		Transactions:    records,
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("transactions", len(filtered)))

	return outputPath, nil
}

func (te *TransactionExporter) calculateHourlyBreakdown(txs []*models.Transaction, loc *time.Location) []HourlyStats {
	hourlyMap := make(map[int]*HourlyStats)

	for _, tx := range txs {
		hour := tx.CreatedAt.In(loc).Hour()
		stats, exists := hourlyMap[hour]
		if !exists {
			stats = &HourlyStats{Hour: hour, ByAction: make(map[string]int)}
			hourlyMap[hour] = stats
		}
		stats.Count++
		stats.ByAction[tx.Action]++
		if tx.Status == models.StatusConfirmed {
			stats.Confirmed++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, exists := hourlyMap[hour]; exists {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
