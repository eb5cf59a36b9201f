package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-timesnet"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seriesCSV writes n hourly rows with a period 8 sine in y and a period 24 sine plus level in z.
func seriesCSV(t *testing.T, n int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("ts,y,z\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		y := math.Sin(2 * math.Pi * float64(i) / 8)
		z := 20 + 3*math.Sin(2*math.Pi*float64(i)/24)
		fmt.Fprintf(&sb, "%s,%.6f,%.6f\n", start.Add(time.Duration(i)*time.Hour).Format(time.DateTime), y, z)
	}
	return writeFile(t, "series.csv", sb.String())
}

const smallConfig = `forecaster:
  model_options:
    seq_len: 24
    label_len: 12
    pred_len: 8
    e_layers: 1
    top_k: 2
    d_model: 8
    d_ff: 8
    num_kernels: 2
    seed: 3
  lambdas: [0.1, 1, 10]
  parallelization: 2
  stride: 4
  residual_zscore: 2
`

func TestSetupLogger(t *testing.T) {
	testData := map[string]struct {
		format  string
		level   string
		wantErr bool
	}{
		"text":           {format: "text", level: "info"},
		"json":           {format: "json", level: "debug"},
		"empty format":   {format: "", level: "warn"},
		"unknown format": {format: "xml", level: "info", wantErr: true},
		"unknown level":  {format: "text", level: "loud", wantErr: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := setupLogger(&buf, td.format, td.level)
			if td.wantErr {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
		})
	}
	assert.ErrorIs(t, setupLogger(&bytes.Buffer{}, "xml", "info"), ErrUnknownLogFormat)
}

func TestLogFormatFromEnv(t *testing.T) {
	t.Setenv("TIMESNET_LOG_FORMAT", "xml")
	_, _, err := runCmd(t, "periods", "--data", seriesCSV(t, 64), "--time-col", "ts", "--columns", "y")
	assert.ErrorIs(t, err, ErrUnknownLogFormat)
}

func TestPeriodsCmd(t *testing.T) {
	stdout, _, err := runCmd(t, "periods", "--data", seriesCSV(t, 64), "--time-col", "ts", "--columns", "y", "--top-k", "1")
	require.Nil(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Rank", "Period", "Frequency", "Amplitude"}, strings.Fields(lines[0]))
	fields := strings.Fields(lines[1])
	require.Len(t, fields, 4)
	assert.Equal(t, "1", fields[0])
	assert.Equal(t, "8", fields[1])
	assert.Equal(t, "8", fields[2])

	_, _, err = runCmd(t, "periods", "--data", seriesCSV(t, 64), "--time-col", "ts", "--top-k", "40")
	assert.NotNil(t, err)
}

func TestForecastCmd(t *testing.T) {
	data := seriesCSV(t, 120)
	cfg := writeFile(t, "config.yaml", smallConfig)
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	outPath := filepath.Join(dir, "results.json")
	plotPath := filepath.Join(dir, "fit.html")

	_, stderr, err := runCmd(t,
		"forecast", "--config", cfg, "--data", data, "--time-col", "ts",
		"--save-model", modelPath, "--out", outPath, "--plot", plotPath, "--summary",
	)
	require.Nil(t, err)
	assert.Contains(t, stderr, "Forecaster:")
	assert.FileExists(t, plotPath)

	var fit forecaster.Results
	b, err := os.ReadFile(outPath)
	require.Nil(t, err)
	require.Nil(t, json.Unmarshal(b, &fit))
	assert.Equal(t, []string{"y", "z"}, fit.Names)
	require.Len(t, fit.T, 8)
	assert.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), fit.T[0])

	stdout, _, err := runCmd(t, "forecast", "--data", data, "--time-col", "ts", "--model", modelPath)
	require.Nil(t, err)
	var loaded forecaster.Results
	require.Nil(t, json.Unmarshal([]byte(stdout), &loaded))
	require.Len(t, loaded.Forecast, 2)
	for c := range fit.Forecast {
		assert.InDeltaSlice(t, fit.Forecast[c], loaded.Forecast[c], 1e-9)
	}

	_, _, err = runCmd(t, "forecast", "--data", data, "--time-col", "ts", "--model", modelPath, "--plot", plotPath)
	assert.ErrorIs(t, err, ErrPlotNeedsFit)
}

func TestPrepRowsToColumnsCmd(t *testing.T) {
	data := writeFile(t, "trade.csv",
		"기간,품목명,수출 중량,수출 금액,수입 중량,수입 금액,무역수지\n"+
			"2023-02,반도체,1,2,3,4,-2\n"+
			"2023-01,반도체,5,6,7,8,-2\n",
	)

	stdout, _, err := runCmd(t, "prep", "rows-to-columns", "--data", data)
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "기간,반도체_수입 금액,반도체_수입 중량,반도체_수출 금액,반도체_수출 중량", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",8,7,6,5"), lines[1])

	out := filepath.Join(t.TempDir(), "wide.csv")
	_, _, err = runCmd(t, "prep", "rows-to-columns", "--data", data, "--out", out)
	require.Nil(t, err)
	assert.FileExists(t, out)
}

func TestPrepMapToTimestampCmd(t *testing.T) {
	data := writeFile(t, "wide.csv",
		"time_stamp,value,value\n"+
			",a,b\n"+
			",corp,corp\n"+
			",seoul,busan\n"+
			"2023-03-01,1,\n"+
			"2023-03-02,2,3\n",
	)

	stdout, _, err := runCmd(t, "prep", "map-to-timestamp", "--data", data, "--holidays")
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "timestamp,item,corporation,location,value,holiday", lines[0])
	assert.Equal(t, "2023-03-01,a,corp,seoul,1,true", lines[1])
	assert.Equal(t, "2023-03-01,b,corp,busan,,true", lines[2])
	assert.Equal(t, "2023-03-02,b,corp,busan,3,false", lines[4])
}
