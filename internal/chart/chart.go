// Package chart renders the ADX, +DI and -DI series as an interactive line chart.
package chart

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/trogers1052/adx-service/internal/models"
)

const (
	seriesADX     = "ADX"
	seriesPlusDI  = "+DI"
	seriesMinusDI = "-DI"
)

// New builds the line chart for points. Labels on the x axis are the point labels.
func New(points []models.ChartPoint, summary models.ChartSummary) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "ADX Result",
			Width:     "100%",
			Height:    "480px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "ADX with +DI / -DI",
			Subtitle: Subtitle(summary),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Row"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	labels := make([]string, len(points))
	adx := make([]opts.LineData, len(points))
	plus := make([]opts.LineData, len(points))
	minus := make([]opts.LineData, len(points))
	for i, p := range points {
		labels[i] = strconv.Itoa(p.Label)
		adx[i] = opts.LineData{Value: p.ADX}
		plus[i] = opts.LineData{Value: p.PlusDI}
		minus[i] = opts.LineData{Value: p.MinusDI}
	}

	line.SetXAxis(labels).
		AddSeries(seriesADX, adx).
		AddSeries(seriesPlusDI, plus).
		AddSeries(seriesMinusDI, minus).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	return line
}

// Render writes the chart as a standalone HTML page
func Render(w io.Writer, points []models.ChartPoint, summary models.ChartSummary) error {
	if err := New(points, summary).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderString renders the chart page into a string for embedding
func RenderString(points []models.ChartPoint, summary models.ChartSummary) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, points, summary); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Subtitle formats the latest values line shown under the title
func Subtitle(s models.ChartSummary) string {
	return fmt.Sprintf("Latest ADX %.2f | +DI %.2f | -DI %.2f | %d rows",
		s.LatestADX, s.LatestPlusDI, s.LatestMinusDI, s.TotalRows)
}
