package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/aouyang1/go-timesnet/period"
	"github.com/aouyang1/go-timesnet/tensor"
	"github.com/spf13/cobra"
)

func (c *cli) newPeriodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "periods",
		Short:   "List the strongest periods of the columns in a CSV file",
		Example: `  timesnet periods --data traffic.csv --time-col timestamp --top-k 3 --window hann`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPeriods(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("data", "", "csv file with a time column and one column per channel")
	flags.String("time-col", "timestamp", "name of the time column")
	flags.StringSlice("columns", nil, "channels to analyze, every numeric column when empty")
	flags.Int("top-k", 3, "number of periods to list")
	flags.String("window", period.WindowRectangular, "spectral window applied before the transform")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (c *cli) runPeriods(cmd *cobra.Command) error {
	td, err := c.loadDataset()
	if err != nil {
		return err
	}
	td = td.DropNan()

	x := tensor.New(1, td.Len(), td.Channels())
	data := x.Data()
	for j, ch := range td.Y {
		for t, v := range ch {
			data[t*td.Channels()+j] = v
		}
	}

	res, err := period.Detect(x, c.v.GetInt("top-k"), &period.Options{Window: c.v.GetString("window")})
	if err != nil {
		return fmt.Errorf("unable to detect periods, %w", err)
	}

	tbl := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "Rank\tPeriod\tFrequency\tAmplitude\t\n")
	for i, p := range res.Periods {
		fmt.Fprintf(tbl, "%d\t%d\t%d\t%.3f\t\n", i+1, p, res.Frequencies[i], res.Weights.At(0, i))
	}
	return tbl.Flush()
}
