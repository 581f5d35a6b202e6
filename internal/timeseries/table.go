// Package timeseries assembles the per-image statistics of a collection into a date-indexed
// table persisted as CSV.
package timeseries

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/reducer"
)

// Value is one table cell. Missing values are written as empty cells.
type Value struct {
	V     float64
	Valid bool
}

func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

func (v Value) MarshalCSV() (string, error) {
	if !v.Valid {
		return "", nil
	}
	return strconv.FormatFloat(v.V, 'f', -1, 64), nil
}

func (v *Value) UnmarshalCSV(s string) error {
	if s == "" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", s, err)
	}
	*v = Some(f)
	return nil
}

// Row holds the statistics of one calendar day. The column set is fixed; statistics that
// were not computed stay empty.
type Row struct {
	Date   string `csv:"date"`
	Mean   Value  `csv:"ndvi_mean"`
	Max    Value  `csv:"ndvi_max"`
	Min    Value  `csv:"ndvi_min"`
	Median Value  `csv:"ndvi_median"`
	StdDev Value  `csv:"ndvi_stdDev"`
	P25    Value  `csv:"ndvi_p25"`
	P50    Value  `csv:"ndvi_p50"`
	P75    Value  `csv:"ndvi_p75"`
}

// Header is the CSV header written for every table.
var Header = []string{"date", "ndvi_mean", "ndvi_max", "ndvi_min", "ndvi_median", "ndvi_stdDev", "ndvi_p25", "ndvi_p50", "ndvi_p75"}

func (r *Row) field(s reducer.Statistic) *Value {
	switch s {
	case reducer.Mean:
		return &r.Mean
	case reducer.Max:
		return &r.Max
	case reducer.Min:
		return &r.Min
	case reducer.Median:
		return &r.Median
	case reducer.StdDev:
		return &r.StdDev
	case reducer.P25:
		return &r.P25
	case reducer.P50:
		return &r.P50
	case reducer.P75:
		return &r.P75
	}
	return nil
}

// NewRow fills the columns present in res. A nil res gives a row with only the date.
func NewRow(date string, res reducer.Result) Row {
	row := Row{Date: date}
	for s, v := range res {
		if f := row.field(s); f != nil {
			*f = Some(v)
		}
	}
	return row
}

func (r Row) Get(s reducer.Statistic) (float64, bool) {
	f := r.field(s)
	if f == nil || !f.Valid {
		return 0, false
	}
	return f.V, true
}

// Deduplicate keeps, for every date, the row that comes last in rows, and orders the result
// by date.
func Deduplicate(rows []Row) []Row {
	index := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if i, ok := index[r.Date]; ok {
			out[i] = r
			continue
		}
		index[r.Date] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

func WriteCSV(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	return gocsv.Marshal(rows, w)
}

func ReadCSV(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return rows, nil
}

// SaveCSV writes the table next to path and renames it into place.
func SaveCSV(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
