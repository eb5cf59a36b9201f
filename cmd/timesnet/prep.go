package main

import (
	"fmt"
	"os"

	"github.com/aouyang1/go-timesnet/dataprep"
	"github.com/spf13/cobra"
)

func (c *cli) newPrepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prep",
		Short: "Reshape raw exports into model ready tables",
	}

	rowsToColumns := &cobra.Command{
		Use:     "rows-to-columns",
		Short:   "Pivot a long trade export into one column per item and measure",
		Example: `  timesnet prep rows-to-columns --data trade.csv --out wide.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := dataprep.LoadCSVFile(c.v.GetString("data"), nil)
			if err != nil {
				return err
			}
			out, err := dataprep.RowsToColumns(frame, dataprep.NewDefaultTradeColumns())
			if err != nil {
				return fmt.Errorf("unable to pivot trade rows, %w", err)
			}
			return c.writeFrame(cmd, out)
		},
	}
	rowsToColumns.Flags().String("data", "", "long trade csv file")
	rowsToColumns.Flags().String("out", "", "output csv path, stdout when empty")
	_ = rowsToColumns.MarkFlagRequired("data")

	mapToTimestamp := &cobra.Command{
		Use:     "map-to-timestamp",
		Short:   "Melt a wide multi level header table into one row per timestamp and combination",
		Example: `  timesnet prep map-to-timestamp --data wide.csv --header-levels 4 --timestamp-col time_stamp___`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt := dataprep.NewDefaultCSVOptions()
			opt.HeaderLevels = c.v.GetInt("header-levels")
			frame, err := dataprep.LoadCSVFile(c.v.GetString("data"), opt)
			if err != nil {
				return err
			}
			out, err := dataprep.MapToTimestamp(frame, c.v.GetString("timestamp-col"))
			if err != nil {
				return fmt.Errorf("unable to map to timestamp, %w", err)
			}
			if c.v.GetBool("holidays") {
				out, err = dataprep.AddHolidayColumn(out, "timestamp", "holiday", dataprep.KoreanHolidays())
				if err != nil {
					return err
				}
			}
			return c.writeFrame(cmd, out)
		},
	}
	mapToTimestamp.Flags().String("data", "", "wide csv file")
	mapToTimestamp.Flags().String("out", "", "output csv path, stdout when empty")
	mapToTimestamp.Flags().Int("header-levels", 4, "number of header rows")
	mapToTimestamp.Flags().String("timestamp-col", dataprep.TimeStampColumn, "label of the timestamp column, levels joined by _")
	mapToTimestamp.Flags().Bool("holidays", false, "add a korean public holiday flag column")
	_ = mapToTimestamp.MarkFlagRequired("data")

	cmd.AddCommand(rowsToColumns, mapToTimestamp)
	return cmd
}

func (c *cli) writeFrame(cmd *cobra.Command, f *dataprep.Frame) error {
	path := c.v.GetString("out")
	if path == "" || path == "-" {
		return dataprep.WriteCSV(cmd.OutOrStdout(), f)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	defer file.Close()
	return dataprep.WriteCSV(file, f)
}
