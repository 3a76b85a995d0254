package store

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"pharmaflow/internal/ingest"
	"pharmaflow/internal/models"
)

// MemorySource holds records in process. It backs the CSV mode and tests.
type MemorySource struct {
	mu      sync.RWMutex
	records []models.RawRecord
}

func NewMemorySource(records ...models.RawRecord) *MemorySource {
	return &MemorySource{records: slices.Clone(records)}
}

func (m *MemorySource) Kind() string { return "memory" }

func (m *MemorySource) Fetch(ctx context.Context, filter models.Filter) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if filter.IsEmpty() {
		return slices.Clone(m.records), nil
	}
	out := make([]models.RawRecord, 0, len(m.records))
	for _, r := range m.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemorySource) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	if err := ctx.Err(); err != nil {
		return models.FilterOptions{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return optionsOf(m.records), nil
}

func (m *MemorySource) Insert(ctx context.Context, records []models.RawRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.records = append(m.records, records...)
	m.mu.Unlock()
	return len(records), nil
}

func (m *MemorySource) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Replace swaps the whole record set.
func (m *MemorySource) Replace(records []models.RawRecord) {
	m.mu.Lock()
	m.records = records
	m.mu.Unlock()
}

// LoadFile reads a CSV or XLSX export and replaces the current records.
func (m *MemorySource) LoadFile(ctx context.Context, path string) (ingest.Report, error) {
	format, err := ingest.FormatFromFilename(path)
	if err != nil {
		return ingest.Report{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return ingest.Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, report, err := ingest.Read(ctx, f, format)
	if err != nil {
		return report, fmt.Errorf("load %s: %w", path, err)
	}
	m.Replace(records)
	return report, nil
}
