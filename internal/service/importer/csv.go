package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kasaops/kasa-backend/internal/model/user"
	"github.com/kasaops/kasa-backend/internal/service/registry"
)

// Importer bulk-loads users from CSV exports. Expected header:
// name,phone,location (any column order, extra columns ignored).
type Importer struct {
	registry *registry.Service
}

// New wires the importer to the registry.
func New(reg *registry.Service) *Importer {
	return &Importer{registry: reg}
}

// Result summarizes one import run.
type Result struct {
	Imported   []user.User
	Duplicates int
	Errors     []string
}

// Import reads the CSV and registers each valid row. Row-level problems
// are collected, not fatal; only an unreadable file or a bad header fails
// the run.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("csv import: read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, required := range []string{"name", "phone", "location"} {
		if _, ok := columns[required]; !ok {
			return Result{}, fmt.Errorf("csv import: missing required header %q", required)
		}
	}

	var result Result
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row, err))
			continue
		}

		name := strings.TrimSpace(record[columns["name"]])
		phone := strings.TrimSpace(record[columns["phone"]])
		location := strings.TrimSpace(record[columns["location"]])

		if name == "" || phone == "" || location == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: missing required fields", row))
			continue
		}
		if !strings.HasPrefix(phone, "+") {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: phone number must include country code (e.g., +254...)", row))
			continue
		}

		u, err := i.registry.Register(ctx, phone, name, location)
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			result.Duplicates++
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row, err))
			continue
		}
		result.Imported = append(result.Imported, u)
	}

	return result, nil
}
