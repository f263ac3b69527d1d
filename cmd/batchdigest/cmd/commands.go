package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"batchdigest"
	"batchdigest/pkg/digest"
	"batchdigest/pkg/filter"
)

func histogramCmd(a *app) *cobra.Command {
	var (
		min, max int64
		bins     int
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "histogram [files...]",
		Short: "Bin integer lines into equal-width bins over [min, max)",
		Long: `Parses every line as a base-10 integer and counts it in one of --bins
equal-width bins over [--min, --max). Prints one "[lower]: count" line per bin.
Values outside the range and lines that do not parse are counted separately
and reported on stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := digest.NewHistogram(min, max, bins)
			if err != nil {
				return err
			}
			a.params.SetInt64("histogram_min", min)
			a.params.SetInt64("histogram_max", max)
			a.params.SetInt("histogram_bins", bins)
			a.params.SetBool("histogram_strict", strict)
			if _, err := run(cmd, a, batchdigest.Identity, args, named[string]{"histogram", h}); err != nil {
				return err
			}
			if err := h.Print(cmd.OutOrStdout()); err != nil {
				return err
			}
			if h.Underflow() > 0 || h.Overflow() > 0 || h.Invalid() > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "underflow: %d overflow: %d invalid: %d\n",
					h.Underflow(), h.Overflow(), h.Invalid())
				if strict {
					return fmt.Errorf("%d lines outside the histogram", h.Underflow()+h.Overflow()+h.Invalid())
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&min, "min", 0, "Inclusive lower bound")
	cmd.Flags().Int64Var(&max, "max", 100, "Exclusive upper bound")
	cmd.Flags().IntVar(&bins, "bins", 10, "Number of bins")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail if any line falls outside the bins")
	return cmd
}

func countCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count [files...]",
		Short: "Count lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := digest.NewCounter[string]()
			if _, err := run(cmd, a, batchdigest.Identity, args, named[string]{"count", c}); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lines: %d\n", c.Count())
			return err
		},
	}
}

func freqCmd(a *app) *cobra.Command {
	var (
		field int
		sep   string
		top   int
		lower bool
	)
	cmd := &cobra.Command{
		Use:   "freq [files...]",
		Short: "Count distinct values of a field",
		Long: `Splits every line on --sep (whitespace when empty) and counts the distinct
values of field --field (0-based). With --field -1 the whole trimmed line is
the value. Prints "count value" rows, most frequent first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f func(string) string
			if field < 0 {
				f = filter.TrimSpace
			} else {
				f = filter.Field(field, sep)
			}
			if lower {
				f = filter.Chain(f, filter.Lower)
			}
			a.params.SetInt("freq_field", field)
			a.params.Set("freq_sep", fmt.Sprintf("%q", sep))
			a.params.SetInt("freq_top", top)
			a.params.SetBool("freq_lower", lower)
			freq := digest.NewFrequency[string]()
			if _, err := run(cmd, a, batchdigest.Filter[string](f), args, named[string]{"freq", freq}); err != nil {
				return err
			}
			for _, e := range freq.Top(top) {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", e.Count, e.Key); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&field, "field", -1, "0-based field index; -1 uses the whole trimmed line")
	cmd.Flags().StringVar(&sep, "sep", "", "Field separator; empty splits on whitespace")
	cmd.Flags().IntVar(&top, "top", 10, "Rows to print; 0 prints all")
	cmd.Flags().BoolVar(&lower, "lower", false, "Lower-case values before counting")
	return cmd
}

func lengthsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lengths [files...]",
		Short: "Summarize line lengths in characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := digest.NewSummary()
			if _, err := run(cmd, a, batchdigest.Filter[int64](filter.Length), args, named[int64]{"lengths", s}); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "count: %d min: %d max: %d mean: %.2f\n",
				s.Count(), s.Min(), s.Max(), s.Mean())
			return err
		},
	}
}
