package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	importProcessor "voiceagent-server/internal/imports/processor"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"
	targetListProcessor "voiceagent-server/internal/targetlist/processor"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type filterOptions struct {
	format     string
	vehicleAge string
	mileage    string
	warranty   string
	tier       string
	tag        string
	search     string
	preset     string
	asJSON     bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "targetctl",
		Short:         "Filter and validate dealership contact files",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")

	logger := func() *observability.Logger {
		if verbose {
			return observability.NewLogger()
		}
		return observability.NewLoggerFromZap(zap.NewNop())
	}

	root.AddCommand(newFilterCmd(logger), newPresetsCmd(), newValidateCmd(logger))
	return root
}

func newFilterCmd(logger func() *observability.Logger) *cobra.Command {
	var opts filterOptions
	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Import a CSV or XLSX file and print the contacts matching the criteria",
		Example: `  targetctl filter leads.csv --warranty Expiring --vehicle-age 0-5
  targetctl filter leads.xlsx --preset high-mileage --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, args[0], opts, logger())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "", "file format (csv or xlsx); defaults to the file extension")
	f.StringVar(&opts.vehicleAge, "vehicle-age", "", "vehicle age range in years, e.g. 0-5")
	f.StringVar(&opts.mileage, "mileage", "", "mileage range, e.g. 50000-100000")
	f.StringVar(&opts.warranty, "warranty", "", "warranty status: Active, Expiring or Expired")
	f.StringVar(&opts.tier, "tier", "", "loyalty tier: Platinum, Gold, Silver or Bronze")
	f.StringVar(&opts.tag, "tag", "", "require this tag")
	f.StringVar(&opts.search, "search", "", "case-insensitive substring of name, email or phone")
	f.StringVar(&opts.preset, "preset", "", "start from a quick-filter preset")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func runFilter(cmd *cobra.Command, path string, opts filterOptions, logger *observability.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	presets, err := targeting.DefaultPresets()
	if err != nil {
		return err
	}
	criteria, err := opts.criteria(presets)
	if err != nil {
		return err
	}

	contacts, result, err := loadFile(ctx, path, opts.format, logger)
	if err != nil {
		return err
	}
	if len(result.Rejected) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid rows (run validate for details)\n", len(result.Rejected))
	}

	lists := targetListProcessor.New(contacts, targetListProcessor.Config{Presets: presets}, logger)
	matched, err := lists.FilterContacts(ctx, criteria)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(matched)
	}
	return printContacts(out, matched)
}

func (o filterOptions) criteria(presets []targeting.Preset) (targeting.FilterCriteria, error) {
	var criteria targeting.FilterCriteria
	if o.preset != "" {
		preset, ok := targeting.FindPreset(presets, o.preset)
		if !ok {
			return criteria, fmt.Errorf("unknown preset %q", o.preset)
		}
		criteria = preset.Criteria.Clone()
	}

	var err error
	if o.vehicleAge != "" {
		if criteria.VehicleAge, err = parseRange(o.vehicleAge); err != nil {
			return criteria, fmt.Errorf("--vehicle-age: %w", err)
		}
	}
	if o.mileage != "" {
		if criteria.Mileage, err = parseRange(o.mileage); err != nil {
			return criteria, fmt.Errorf("--mileage: %w", err)
		}
	}
	if o.warranty != "" {
		criteria.WarrantyStatus = targeting.WarrantyStatus(o.warranty)
	}
	if o.tier != "" {
		criteria.LoyaltyTier = targeting.LoyaltyTier(o.tier)
	}
	if o.tag != "" {
		criteria.Tag = o.tag
	}
	if o.search != "" {
		criteria.Search = o.search
	}
	return criteria, criteria.Validate()
}

// parseRange reads "min-max"; thousands separators are allowed.
func parseRange(s string) (*targeting.Range, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("expected MIN-MAX, got %q", s)
	}
	minimum, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(lo), ",", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid minimum %q", lo)
	}
	maximum, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(hi), ",", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid maximum %q", hi)
	}
	return &targeting.Range{Min: minimum, Max: maximum}, nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the quick-filter presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			presets, err := targeting.DefaultPresets()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tLABEL\tCRITERIA")
			for _, p := range presets {
				raw, err := json.Marshal(p.Criteria)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Key, p.Label, raw)
			}
			return w.Flush()
		},
	}
}

func newValidateCmd(logger func() *observability.Logger) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Dry-run an import and list the rows that would be rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			_, result, err := loadFile(ctx, args[0], format, logger())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d rows accepted, %d rejected\n", len(result.Accepted), len(result.Rejected))
			if len(result.Rejected) == 0 {
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROW\tREASON")
			for _, r := range result.Rejected {
				fmt.Fprintf(w, "%d\t%s\n", r.Row, r.Reason)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return fmt.Errorf("%d rows rejected", len(result.Rejected))
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "file format (csv or xlsx); defaults to the file extension")
	return cmd
}

// loadFile runs the import pipeline against an empty in-memory store
func loadFile(ctx context.Context, path, format string, logger *observability.Logger) (*targeting.ContactStore, importProcessor.ImportResult, error) {
	var f importProcessor.Format
	var err error
	if format != "" {
		f, err = importProcessor.ParseFormat(format)
	} else {
		f, err = importProcessor.FormatFromFilename(path)
	}
	if err != nil {
		return nil, importProcessor.ImportResult{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, importProcessor.ImportResult{}, err
	}

	contacts, err := targeting.NewContactStore(nil)
	if err != nil {
		return nil, importProcessor.ImportResult{}, err
	}
	result, err := importProcessor.New(contacts, importProcessor.Config{}, logger).ImportFromFile(ctx, raw, f)
	if err != nil {
		return nil, result, err
	}
	return contacts, result, nil
}

func printContacts(out io.Writer, contacts []targeting.Contact) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tAGE\tMILEAGE\tWARRANTY\tTIER\tTAGS")
	for _, c := range contacts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Email, c.Phone,
			optional(c.VehicleAge), optional(c.Mileage),
			c.WarrantyStatus, c.LoyaltyTier, strings.Join(c.Tags, ","))
	}
	fmt.Fprintf(w, "\n%d contacts\n", len(contacts))
	return w.Flush()
}

func optional(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
