package telemetry

import (
	"context"
	"errors"
	"fmt"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/xitongsys/parquet-go-source/local"
)

// ErrInvalidTrace is returned when a loaded file lacks the trace columns.
var ErrInvalidTrace = errors.New("not a glitchsim trace")

// ExportParquet writes the trace to a parquet file at path.
func (t *Trace) ExportParquet(ctx context.Context, path string) error {
	df, err := t.ToDataFrame()
	if err != nil {
		return err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating parquet file: %w", err)
	}

	if err := exports.ExportToParquet(ctx, fw, df); err != nil {
		fw.Close()
		return fmt.Errorf("exporting parquet: %w", err)
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing parquet file: %w", err)
	}
	return nil
}

// LoadParquet reads a trace previously written by ExportParquet.
func LoadParquet(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file: %w", err)
	}
	defer fr.Close()

	df, err := imports.LoadFromParquet(ctx, fr)
	if err != nil {
		return nil, fmt.Errorf("loading parquet: %w", err)
	}
	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyTrace
	}
	if _, err := df.NameToColumn("voltage"); err != nil {
		return nil, ErrInvalidTrace
	}
	return df, nil
}

// SummarizeFrame computes a Summary from a trace dataframe, such as one
// returned by LoadParquet.
func SummarizeFrame(df *dataframe.DataFrame) (Summary, error) {
	cols := make(map[string]dataframe.Series, len(Columns))
	for _, name := range Columns {
		idx, err := df.NameToColumn(name)
		if err != nil {
			return Summary{}, fmt.Errorf("%w: missing column %q", ErrInvalidTrace, name)
		}
		cols[name] = df.Series[idx]
	}

	tr := &Trace{}
	rows := df.NRows()
	for row := 0; row < rows; row++ {
		var e Entry
		e.Seq = int(asInt(cols["seq"].Value(row)))
		if p, ok := cols["phase"].Value(row).(string); ok {
			e.Phase = phaseOf(p)
		}
		e.Voltage = float32(asFloat(cols["voltage"].Value(row)))
		e.Temperature = float32(asFloat(cols["temperature"].Value(row)))
		e.Cycles = uint64(asInt(cols["cycles"].Value(row)))
		e.Stall = asInt(cols["stall"].Value(row)) != 0
		e.Glitch = asInt(cols["glitch"].Value(row)) != 0
		e.Brownout = asInt(cols["brownout"].Value(row)) != 0
		tr.Entries = append(tr.Entries, e)
	}
	return tr.Summarize(), nil
}

func asInt(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

func asFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	}
	return 0
}
