package main

import (
	"fmt"
	"io"
	"os"

	forecaster "github.com/aouyang1/go-timesnet"
	"github.com/aouyang1/go-timesnet/dataprep"
	"github.com/aouyang1/go-timesnet/timedataset"
	"github.com/goccy/go-json"
)

// forecasterOptions decodes the forecaster section of the config over the default options.
func (c *cli) forecasterOptions() (*forecaster.Options, error) {
	opt := forecaster.NewDefaultOptions()
	section := c.v.Get("forecaster")
	if section == nil {
		return opt, nil
	}
	b, err := json.Marshal(section)
	if err != nil {
		return nil, fmt.Errorf("unable to encode forecaster config, %w", err)
	}
	if err := json.Unmarshal(b, opt); err != nil {
		return nil, fmt.Errorf("unable to decode forecaster config, %w", err)
	}
	return opt, nil
}

// loadDataset reads the data flag as a CSV and converts the selected columns into a dataset.
func (c *cli) loadDataset() (*timedataset.TimeDataset, error) {
	frame, err := dataprep.LoadCSVFile(c.v.GetString("data"), nil)
	if err != nil {
		return nil, err
	}
	return dataprep.ToDataset(frame, c.v.GetString("time-col"), c.v.GetStringSlice("columns"))
}

// writeJSON writes v to path, or to fallback when path is empty or "-".
func writeJSON(path string, v any, fallback io.Writer) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode json, %w", err)
	}
	b = append(b, '\n')
	if path == "" || path == "-" {
		_, err := fallback.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
