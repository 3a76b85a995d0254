package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"

	"pharmaflow/internal/config"
)

// SampleSeed is the generator seed used when seeding from configuration.
const SampleSeed = 2024

// Opened is a configured record source together with the concrete backend
// behind it. Exactly one of Memory and SQL is set.
type Opened struct {
	Source Source
	Memory *MemorySource
	SQL    *SQLSource
}

func (o *Opened) Close() error {
	if o.SQL != nil {
		return o.SQL.Close()
	}
	return nil
}

// Open builds the source selected by cfg.Driver. The memory driver loads
// cfg.CSVFile; a missing file is tolerated only when sample seeding is on.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Opened, error) {
	var opened Opened

	switch cfg.Driver {
	case "memory":
		mem := NewMemorySource()
		if cfg.CSVFile != "" {
			report, err := mem.LoadFile(ctx, cfg.CSVFile)
			switch {
			case err == nil:
				logger.InfoContext(ctx, "records loaded",
					"file", cfg.CSVFile,
					"rows", report.Rows,
					"parsed", report.Parsed,
					"skipped", report.Skipped,
					"coerced", report.Coerced,
				)
			case stderrors.Is(err, fs.ErrNotExist) && cfg.SeedSample:
				logger.WarnContext(ctx, "record file missing, using sample data", "file", cfg.CSVFile)
			default:
				return nil, err
			}
		}
		opened.Memory = mem
		opened.Source = mem

	default:
		src, err := OpenSQL(ctx, cfg.Driver, cfg.URL, cfg.Table)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "connected to record table", "driver", cfg.Driver, "table", src.table)
		opened.SQL = src
		opened.Source = src
	}

	if cfg.SeedSample {
		seeded, err := SeedIfEmpty(ctx, opened.Source, cfg.SampleSize, SampleSeed)
		if err != nil {
			_ = opened.Close()
			return nil, fmt.Errorf("seed %s source: %w", opened.Source.Kind(), err)
		}
		if seeded {
			logger.InfoContext(ctx, "sample records seeded", "count", cfg.SampleSize)
		}
	}

	return &opened, nil
}
