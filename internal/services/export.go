package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/bbr/taskbot/internal/i18n"
	"github.com/bbr/taskbot/internal/models"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportCSV renders tasks as a semicolon separated CSV with a localized header.
func ExportCSV(tasks []models.Task, lang string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	header := []string{
		i18n.GetMessage(lang, "csv_number"),
		i18n.GetMessage(lang, "csv_status"),
		i18n.GetMessage(lang, "csv_text"),
		i18n.GetMessage(lang, "csv_created"),
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, t := range tasks {
		status := i18n.GetMessage(lang, "csv_pending")
		if t.Done {
			status = i18n.GetMessage(lang, "csv_done")
		}
		record := []string{
			strconv.Itoa(t.Position),
			status,
			t.Text,
			t.CreatedAt.Format(exportTimeLayout),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
