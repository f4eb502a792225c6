package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/guregu/null/v6"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/trogers1052/adx-service/internal/adx"
	"github.com/trogers1052/adx-service/internal/csvinput"
	"github.com/trogers1052/adx-service/internal/export"
	"github.com/trogers1052/adx-service/internal/models"
	"github.com/trogers1052/adx-service/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "adxcli: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("adxcli", flag.ContinueOnError)
	in := fs.String("in", "", "input CSV with Open, High, Low, Close columns")
	period := fs.Int("period", adx.DefaultPeriod, "smoothing period")
	all := fs.Bool("all", false, "print every row instead of only chartable rows")
	xlsxPath := fs.String("xlsx", "", "also write the full table to this XLSX file")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := logger.Init(*logLevel, "development"); err != nil {
		return err
	}
	defer logger.Sync()

	paths := fs.Args()
	if *in != "" {
		paths = append([]string{*in}, paths...)
	}
	if len(paths) == 0 {
		return errors.New("no input file; use -in data.csv")
	}
	if *period < 1 {
		return fmt.Errorf("period must be at least 1, got %d", *period)
	}

	if len(paths) == 1 {
		return runSingle(out, paths[0], *period, *all, *xlsxPath)
	}
	if *xlsxPath != "" {
		return errors.New("-xlsx needs exactly one input file")
	}
	return runBatch(out, paths, *period)
}

func runSingle(out io.Writer, path string, period int, all bool, xlsxPath string) error {
	series, err := readSeries(path)
	if err != nil {
		return err
	}

	tbl := adx.Compute(series, period)
	if !tbl.HasChart() {
		return fmt.Errorf("%s: not enough rows to calculate ADX with period %d", path, period)
	}

	if all {
		printFullTable(out, tbl)
	} else {
		printChartTable(out, tbl)
	}

	if xlsxPath != "" {
		if err := writeXLSXFile(xlsxPath, tbl.Snapshot()); err != nil {
			return err
		}
		logger.Info("Wrote XLSX", logger.String("path", xlsxPath))
	}
	return nil
}

func writeXLSXFile(path string, snap *models.TableSnapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteXLSX(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func runBatch(out io.Writer, paths []string, period int) error {
	batch := make([]models.Series, len(paths))
	for i, p := range paths {
		series, err := readSeries(p)
		if err != nil {
			return err
		}
		batch[i] = series
	}

	tables, err := adx.ComputeBatch(context.Background(), batch, period)
	if err != nil {
		return err
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"File", "Bars", "Chart rows", "ADX", "+DI", "-DI"})
	for i, tbl := range tables {
		latest, ok := tbl.Latest()
		if !ok {
			t.AppendRow(table.Row{filepath.Base(paths[i]), tbl.Len(), 0, "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{
			filepath.Base(paths[i]), tbl.Len(), len(tbl.Chartable()),
			fmt2(latest.ADX), fmt2(latest.PlusDI), fmt2(latest.MinusDI),
		})
	}
	t.Render()
	return nil
}

func readSeries(path string) (models.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := csvinput.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func printChartTable(out io.Writer, tbl *adx.Table) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", models.ColumnADX, models.ColumnPlusDI, models.ColumnMinusDI})
	for _, p := range tbl.Chartable() {
		t.AppendRow(table.Row{p.Label, fmt4(p.ADX), fmt4(p.PlusDI), fmt4(p.MinusDI)})
	}
	rightAlign(t, 4)
	t.Render()
}

func printFullTable(out io.Writer, tbl *adx.Table) {
	t := newTable(out)
	header := table.Row{"#"}
	for _, c := range models.ADXColumns {
		header = append(header, c)
	}
	t.AppendHeader(header)
	for _, r := range tbl.Rows() {
		row := table.Row{r.Index}
		for _, v := range r.Values() {
			row = append(row, cell(v))
		}
		t.AppendRow(row)
	}
	rightAlign(t, len(models.ADXColumns)+1)
	t.Render()
}

func rightAlign(t table.Writer, columns int) {
	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignRight}
	}
	t.SetColumnConfigs(configs)
}

func cell(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return fmt4(v.Float64)
}

func fmt2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func fmt4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
