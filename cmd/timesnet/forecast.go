package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	forecaster "github.com/aouyang1/go-timesnet"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var ErrPlotNeedsFit = errors.New("plotting requires fitting in the same run")

func (c *cli) newForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Fit a forecaster on a CSV file or load a saved model and forecast the next horizon",
		Example: `  timesnet forecast --data traffic.csv --time-col timestamp --save-model model.json --plot fit.html
  timesnet forecast --data traffic.csv --time-col timestamp --model model.json --out results.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runForecast(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("data", "", "csv file with a time column and one column per channel")
	flags.String("time-col", "timestamp", "name of the time column")
	flags.StringSlice("columns", nil, "channels to forecast, every numeric column when empty")
	flags.String("model", "", "saved model to forecast with instead of fitting")
	flags.String("save-model", "", "write the fit model to this path")
	flags.String("out", "", "write the forecast json to this path, stdout when empty")
	flags.String("plot", "", "write an html report of the fit to this path")
	flags.Bool("summary", false, "print a model summary to stderr")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (c *cli) runForecast(cmd *cobra.Command) error {
	td, err := c.loadDataset()
	if err != nil {
		return err
	}

	var f *forecaster.Forecaster
	if path := c.v.GetString("model"); path != "" {
		if c.v.GetString("plot") != "" {
			return ErrPlotNeedsFit
		}
		f, err = loadForecaster(path)
		if err != nil {
			return err
		}
		slog.Info("loaded model", "path", path, "channels", f.Names())
	} else {
		opt, err := c.forecasterOptions()
		if err != nil {
			return err
		}
		f, err = forecaster.New(opt)
		if err != nil {
			return err
		}
		if err := f.Fit(td); err != nil {
			return fmt.Errorf("unable to fit forecaster, %w", err)
		}
		slog.Info("fit forecaster", "rows", f.TrainingData().Len(), "channels", f.Names())
	}

	m, err := f.Model()
	if err != nil {
		return err
	}
	if path := c.v.GetString("save-model"); path != "" {
		if err := writeJSON(path, m, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("unable to save model, %w", err)
		}
	}
	if c.v.GetBool("summary") {
		if err := m.TablePrint(cmd.ErrOrStderr(), "", "  "); err != nil {
			return err
		}
	}
	if path := c.v.GetString("plot"); path != "" {
		if err := f.PlotFitFile(path); err != nil {
			return fmt.Errorf("unable to plot fit, %w", err)
		}
	}

	res, err := f.Predict(td)
	if err != nil {
		return fmt.Errorf("unable to forecast, %w", err)
	}
	return writeJSON(c.v.GetString("out"), res, cmd.OutOrStdout())
}

func loadForecaster(path string) (*forecaster.Forecaster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read model, %w", err)
	}
	var m forecaster.Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unable to decode model, %w", err)
	}
	return forecaster.NewFromModel(m)
}
