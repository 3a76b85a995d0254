package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pharmaflow/internal/analytics"
	"pharmaflow/internal/config"
	"pharmaflow/internal/ingest"
	"pharmaflow/internal/models"
	"pharmaflow/internal/observability"
	"pharmaflow/internal/services"
	"pharmaflow/internal/store"
)

type rootOptions struct {
	envFile string
	output  string

	countries     []string
	productGroups []string
	vendors       []string
	shipmentModes []string
	from, to      string
}

func (o *rootOptions) filter() (models.Filter, error) {
	f := models.Filter{
		Countries:     o.countries,
		ProductGroups: o.productGroups,
		Vendors:       o.vendors,
		ShipmentModes: o.shipmentModes,
	}
	if o.from == "" && o.to == "" {
		return f, nil
	}
	start, ok := ingest.ParseDate(o.from)
	if !ok {
		return f, fmt.Errorf("invalid --from %q", o.from)
	}
	end, ok := ingest.ParseDate(o.to)
	if !ok {
		return f, fmt.Errorf("invalid --to %q", o.to)
	}
	if end.Before(start) {
		return f, fmt.Errorf("--to precedes --from")
	}
	f.DateRange = &models.DateRange{From: start, To: end}
	return f, nil
}

// env is what every subcommand needs once configuration is loaded.
type env struct {
	cfg       *config.Config
	opened    *store.Opened
	analytics *services.Analytics
}

func (o *rootOptions) open(cmd *cobra.Command) (*env, error) {
	var files []string
	if o.envFile != "" {
		files = append(files, o.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)
	opened, err := store.Open(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    cfg,
		opened: opened,
		analytics: services.NewAnalytics(opened.Source,
			services.WithLogger(logger),
			services.WithMetrics(analytics.NewSyntheticMetrics(cfg.Analytics.MetricsSeed)),
		),
	}, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "pharmactl",
		Short:         "Query and load pharmaceutical supply-chain records",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unsupported --output %q (json or yaml)", opts.output)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", "", "dotenv file to load before the environment (default .env)")
	pf.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	pf.StringSliceVar(&opts.countries, "country", nil, "restrict to countries (repeatable)")
	pf.StringSliceVar(&opts.productGroups, "product-group", nil, "restrict to product groups (repeatable)")
	pf.StringSliceVar(&opts.vendors, "vendor", nil, "restrict to vendors (repeatable)")
	pf.StringSliceVar(&opts.shipmentModes, "shipment-mode", nil, "restrict to shipment modes (repeatable)")
	pf.StringVar(&opts.from, "from", "", "earliest delivery date")
	pf.StringVar(&opts.to, "to", "", "latest delivery date")
	root.MarkFlagsRequiredTogether("from", "to")

	root.AddCommand(
		newSeedCmd(opts),
		newImportCmd(opts),
		newForecastCmd(opts),
		newFreightCmd(opts),
		newShipmentCmd(opts),
		newPricingCmd(opts),
		newCrossTabCmd(opts),
	)
	return root
}

// analysisCmd builds a subcommand that opens the source, runs one analysis
// over the filter and prints the result.
func analysisCmd(opts *rootOptions, use, short string, run func(cmd *cobra.Command, e *env, f models.Filter) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.filter()
			if err != nil {
				return err
			}
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.opened.Close()

			result, err := run(cmd, e, f)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, result)
		},
	}
}

func newForecastCmd(opts *rootOptions) *cobra.Command {
	var timeframe string
	cmd := analysisCmd(opts, "forecast", "Project demand forward from historical line-item quantities",
		func(cmd *cobra.Command, e *env, f models.Filter) (any, error) {
			return e.analytics.Forecast(cmd.Context(), f, analytics.ParseUnit(timeframe))
		})
	cmd.Flags().StringVar(&timeframe, "timeframe", "monthly", "bucket size: monthly or weekly")
	return cmd
}

func newFreightCmd(opts *rootOptions) *cobra.Command {
	return analysisCmd(opts, "freight", "Summarise freight cost by mode, month, vendor and country",
		func(cmd *cobra.Command, e *env, f models.Filter) (any, error) {
			return e.analytics.Freight(cmd.Context(), f)
		})
}

func newShipmentCmd(opts *rootOptions) *cobra.Command {
	return analysisCmd(opts, "shipment", "Break shipments down by transport mode",
		func(cmd *cobra.Command, e *env, f models.Filter) (any, error) {
			return e.analytics.ShipmentModes(cmd.Context(), f)
		})
}

func newPricingCmd(opts *rootOptions) *cobra.Command {
	var location string
	cmd := analysisCmd(opts, "pricing", "Compare unit prices per month and manufacturer",
		func(cmd *cobra.Command, e *env, f models.Filter) (any, error) {
			if location != "" && !strings.EqualFold(location, "global") {
				f.Countries = []string{location}
			}
			return e.analytics.Pricing(cmd.Context(), f, location)
		})
	cmd.Flags().StringVar(&location, "location", "", "country to price in; labels the manufacturer list")
	return cmd
}

func newCrossTabCmd(opts *rootOptions) *cobra.Command {
	var dimension, measure string
	var top int
	cmd := analysisCmd(opts, "crosstab", "Group records by a dimension and total a measure",
		func(cmd *cobra.Command, e *env, f models.Filter) (any, error) {
			dim, err := analytics.ParseDimension(dimension)
			if err != nil {
				return nil, err
			}
			m, err := analytics.ParseMeasure(measure)
			if err != nil {
				return nil, err
			}
			return e.analytics.CrossTab(cmd.Context(), f, dim, m, top)
		})
	cmd.Flags().StringVar(&dimension, "dimension", "manufacturer", "manufacturer, vendor, country, shipment_mode or product_group")
	cmd.Flags().StringVar(&measure, "measure", "freight_cost", "freight_cost, unit_price or quantity")
	cmd.Flags().IntVar(&top, "top", 0, "keep the top N groups and fold the rest into Others")
	return cmd
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty record source with deterministic sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.opened.Close()

			if size <= 0 {
				size = e.cfg.Database.SampleSize
			}
			seeded, err := store.SeedIfEmpty(cmd.Context(), e.opened.Source, size, store.SampleSeed)
			if err != nil {
				return err
			}
			count, err := e.opened.Source.Count(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, map[string]any{
				"source":  e.opened.Source.Kind(),
				"seeded":  seeded,
				"records": count,
			})
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "number of sample records (default DB_SAMPLE_SIZE)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Append records from CSV or XLSX exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.opened.Close()

			results := make([]*services.ImportResult, 0, len(args))
			for _, path := range args {
				result, err := importFile(cmd, e, path)
				if err != nil {
					return err
				}
				results = append(results, result)
			}
			return render(cmd.OutOrStdout(), opts.output, results)
		},
	}
}

func importFile(cmd *cobra.Command, e *env, path string) (*services.ImportResult, error) {
	format, err := ingest.FormatFromFilename(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, report, err := ingest.Read(cmd.Context(), f, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return e.analytics.Import(cmd.Context(), filepath.Base(path), records, report)
}

// render prints v as indented JSON or as YAML. YAML goes through the JSON
// form so both outputs share the same field names.
func render(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format != "yaml" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
