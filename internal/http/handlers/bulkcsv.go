package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paydesk/server/internal/model"
)

const maxBulkRows = 1000

var errEmptyBatch = errors.New("the file contains no payments")

// bulkColumns maps accepted header spellings to payment fields
var bulkColumns = map[string]string{
	"recipientnumber": "recipientNumber",
	"mobilenumber":    "recipientNumber",
	"phone":           "recipientNumber",
	"amount":          "amount",
	"recipientname":   "recipientName",
	"name":            "recipientName",
	"network":         "network",
	"narration":       "narration",
	"description":     "narration",
	"reference":       "reference",
}

// parseBulkCSV reads payouts from a CSV with a header row. Recipient number and
// amount are required; other known columns are optional and unknown ones ignored.
func parseBulkCSV(r io.Reader) ([]model.Payment, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errEmptyBatch
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := map[string]int{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
		if field, ok := bulkColumns[key]; ok {
			if _, dup := index[field]; !dup {
				index[field] = i
			}
		}
	}
	for _, required := range []string{"recipientNumber", "amount"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	cell := func(rec []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var payments []model.Payment
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		if len(payments) == maxBulkRows {
			return nil, fmt.Errorf("at most %d payments per file", maxBulkRows)
		}

		number := cell(rec, "recipientNumber")
		if number == "" {
			return nil, fmt.Errorf("line %d: recipient number is required", line)
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(cell(rec, "amount"), ",", ""), 64)
		if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
			return nil, fmt.Errorf("line %d: amount must be a positive number", line)
		}
		payments = append(payments, model.Payment{
			RecipientNumber: number,
			Amount:          amount,
			RecipientName:   cell(rec, "recipientName"),
			Network:         strings.ToUpper(cell(rec, "network")),
			Narration:       cell(rec, "narration"),
			Reference:       cell(rec, "reference"),
		})
	}
	if len(payments) == 0 {
		return nil, errEmptyBatch
	}
	return payments, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
