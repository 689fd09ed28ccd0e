package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/ValueArena/models"
)

// CSVManager exports ledgers as CSV under basePath/csv/{model}/.
type CSVManager struct {
	basePath string
	now      func() time.Time
}

func NewCSVManager(basePath string) *CSVManager {
	return &CSVManager{
		basePath: basePath,
		now:      time.Now,
	}
}

// ExportLedger writes the trade history and the NAV history of l and returns
// both file paths.
func (c *CSVManager) ExportLedger(l *models.Ledger) (string, string, error) {
	tradesPath, err := c.WriteTradeHistory(l)
	if err != nil {
		return "", "", err
	}
	navPath, err := c.WriteNavHistory(l)
	if err != nil {
		return "", "", err
	}
	return tradesPath, navPath, nil
}

func (c *CSVManager) WriteTradeHistory(l *models.Ledger) (string, error) {
	headers := []string{
		"ID", "Date", "Action", "Ticker", "AmountUSD", "Shares",
		"SharesFilled", "Price", "OrderID", "Status", "Error", "Thesis", "Reason",
	}
	rows := make([][]string, 0, len(l.TradeHistory))
	for _, t := range l.TradeHistory {
		amount := ""
		if t.AmountUSD != nil {
			amount = formatFloat(*t.AmountUSD)
		}
		shares := ""
		if t.Shares != nil {
			if t.Shares.All {
				shares = "ALL"
			} else {
				shares = formatFloat(t.Shares.Quantity)
			}
		}
		rows = append(rows, []string{
			t.ID, t.Date, t.Action, t.Ticker, amount, shares,
			formatFloat(t.SharesFilled), formatFloat(t.Price),
			t.Result.OrderID, t.Result.Status, t.Result.Error, t.Thesis, t.Reason,
		})
	}
	return c.write(l.ModelID, "trades", headers, rows)
}

func (c *CSVManager) WriteNavHistory(l *models.Ledger) (string, error) {
	rows := make([][]string, 0, len(l.NavHistory))
	for _, p := range l.NavHistory {
		rows = append(rows, []string{p.Date, formatFloat(p.NAV)})
	}
	return c.write(l.ModelID, "nav", []string{"Date", "NAV"}, rows)
}

func (c *CSVManager) write(modelID, kind string, headers []string, rows [][]string) (string, error) {
	dirPath := filepath.Join(c.basePath, "csv", safeName(modelID))
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.csv", safeName(modelID), kind, c.now().Format("20060102_150405"))
	filePath := filepath.Join(dirPath, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write rows: %w", err)
	}
	return filePath, nil
}

// CleanOldCSVFiles removes exports older than maxAge.
func (c *CSVManager) CleanOldCSVFiles(maxAge time.Duration) error {
	dir := filepath.Join(c.basePath, "csv")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".csv") && c.now().Sub(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove old file %s: %w", path, err)
			}
		}
		return nil
	})
}

// safeName turns a model id such as "openai/gpt-5.1" into a path segment.
func safeName(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
