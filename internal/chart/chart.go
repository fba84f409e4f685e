// Package chart renders closing-price line charts to image files.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/dyike/StockPilot/internal/models"
)

// ErrInsufficientData is returned for a series without points.
var ErrInsufficientData = errors.New("no price data to plot")

const (
	width  = 10 * vg.Inch
	height = 6 * vg.Inch
)

var lineColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// RenderPriceChart draws the closing prices of series against date and saves
// the chart to path, replacing any previous file. The image format follows the
// file extension. It returns the path written.
func RenderPriceChart(ticker string, series *models.PriceSeries, path string) (string, error) {
	if series.Len() == 0 {
		return "", ErrInsufficientData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Stock Prices for %s over the last year", ticker)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Closing Price (USD)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	points := make(plotter.XYs, series.Len())
	for i, pt := range series.Points {
		points[i].X = float64(pt.Date.Unix())
		points[i].Y = pt.Close
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return "", fmt.Errorf("build price line: %w", err)
	}
	line.Color = lineColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("%s Stock Prices", ticker), line)
	p.Legend.Top = true

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create chart directory: %w", err)
		}
	}
	if err := p.Save(width, height, path); err != nil {
		return "", fmt.Errorf("save chart: %w", err)
	}
	return path, nil
}
