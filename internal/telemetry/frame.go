package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

// Export errors
var (
	ErrEmptyTrace    = errors.New("trace has no samples")
	ErrUnknownFormat = errors.New("unknown trace format")
)

// Format selects a trace export encoding.
type Format string

const (
	FormatTable   Format = "table"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatPlot    Format = "plot"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatTable, FormatCSV, FormatParquet, FormatPlot:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (valid: table, csv, parquet, plot)", ErrUnknownFormat, s)
}

// Column names of the trace dataframe, in order.
var Columns = []string{
	"seq", "phase", "cost", "hamming", "current", "di_dt",
	"voltage", "temperature", "cycles", "stall", "glitch", "brownout",
}

// ToDataFrame converts the trace into a dataframe with one row per tick.
// Boolean flags are stored as 0/1 integers.
func (t *Trace) ToDataFrame() (*dataframe.DataFrame, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTrace
	}

	n := t.Len()
	seq := make([]interface{}, n)
	phase := make([]interface{}, n)
	cost := make([]interface{}, n)
	hamming := make([]interface{}, n)
	current := make([]interface{}, n)
	diDt := make([]interface{}, n)
	voltage := make([]interface{}, n)
	temp := make([]interface{}, n)
	cycles := make([]interface{}, n)
	stall := make([]interface{}, n)
	glitch := make([]interface{}, n)
	brownout := make([]interface{}, n)

	for i, e := range t.Entries {
		seq[i] = int64(e.Seq)
		phase[i] = string(e.Phase)
		cost[i] = int64(e.Cost)
		hamming[i] = int64(e.Hamming)
		current[i] = float64(e.Current)
		diDt[i] = float64(e.DiDt)
		voltage[i] = float64(e.Voltage)
		temp[i] = float64(e.Temperature)
		cycles[i] = int64(e.Cycles)
		stall[i] = boolToInt(e.Stall)
		glitch[i] = boolToInt(e.Glitch)
		brownout[i] = boolToInt(e.Brownout)
	}

	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("seq", nil, seq...),
		dataframe.NewSeriesString("phase", nil, phase...),
		dataframe.NewSeriesInt64("cost", nil, cost...),
		dataframe.NewSeriesInt64("hamming", nil, hamming...),
		dataframe.NewSeriesFloat64("current", nil, current...),
		dataframe.NewSeriesFloat64("di_dt", nil, diDt...),
		dataframe.NewSeriesFloat64("voltage", nil, voltage...),
		dataframe.NewSeriesFloat64("temperature", nil, temp...),
		dataframe.NewSeriesInt64("cycles", nil, cycles...),
		dataframe.NewSeriesInt64("stall", nil, stall...),
		dataframe.NewSeriesInt64("glitch", nil, glitch...),
		dataframe.NewSeriesInt64("brownout", nil, brownout...),
	), nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Write encodes the trace to w in a streaming format (table, csv or plot).
// Parquet needs a seekable file; use ExportParquet.
func (t *Trace) Write(ctx context.Context, w io.Writer, format Format) error {
	if format == FormatPlot {
		if t.Len() == 0 {
			return ErrEmptyTrace
		}
		_, err := io.WriteString(w, PlotVoltage(t, 0)+"\n")
		return err
	}

	df, err := t.ToDataFrame()
	if err != nil {
		return err
	}

	switch format {
	case FormatTable:
		_, err := io.WriteString(w, df.Table())
		return err
	case FormatCSV:
		if err := exports.ExportToCSV(ctx, w, df); err != nil {
			return fmt.Errorf("exporting csv: %w", err)
		}
		return nil
	case FormatParquet:
		return fmt.Errorf("%w: parquet requires an output file", ErrUnknownFormat)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
