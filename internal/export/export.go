/*
Package export renders a recommendation result set for download: a CSV
table, a one-page PDF report, an HTML pie chart, and a zip bundle of all three.
*/
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"glucomeal/internal/dataset"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-pdf/fpdf"
	"golang.org/x/sync/errgroup"
)

// Format is a download format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatPDF    Format = "pdf"
	FormatChart  Format = "chart"
	FormatBundle Format = "zip"
)

// ErrNoRecords is returned by writers that need at least one record.
var ErrNoRecords = errors.New("no records to export")

// ErrUnknownFormat is returned by Write for an unsupported Format.
var ErrUnknownFormat = errors.New("unknown export format")

const (
	reportTitle = "Diet Recommendation Report"
	chartTitle  = "Calories by Food Item"
)

// File describes how a format is served.
type File struct {
	Name        string
	ContentType string
}

var files = map[Format]File{
	FormatCSV:    {Name: "recommendations.csv", ContentType: "text/csv"},
	FormatPDF:    {Name: "recommendations.pdf", ContentType: "application/pdf"},
	FormatChart:  {Name: "calories.html", ContentType: "text/html; charset=utf-8"},
	FormatBundle: {Name: "recommendations.zip", ContentType: "application/zip"},
}

// ParseFormat validates a requested format.
func ParseFormat(s string) (Format, File, error) {
	f := Format(s)
	file, ok := files[f]
	if !ok {
		return "", File{}, fmt.Errorf("%w: '%s'", ErrUnknownFormat, s)
	}
	return f, file, nil
}

// Write renders recs in format f.
func Write(ctx context.Context, w io.Writer, f Format, recs []dataset.FoodRecord) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, recs)
	case FormatPDF:
		return WritePDF(w, recs)
	case FormatChart:
		return WritePieChart(w, recs)
	case FormatBundle:
		return WriteBundle(ctx, w, recs)
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownFormat, f)
	}
}

// FormatCalories prints a calorie count without a trailing ".0" for whole numbers.
func FormatCalories(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// WriteCSV writes the records with every reference column, in table column
// order. An empty set still yields the header.
func WriteCSV(w io.Writer, recs []dataset.FoodRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		dataset.ColumnFood,
		dataset.ColumnCalories,
		dataset.ColumnSugar,
		dataset.ColumnBMI,
		dataset.ColumnDiet,
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Food,
			FormatCalories(r.Calories),
			string(r.SugarCategory),
			string(r.BMICategory),
			string(r.DietType),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF writes a single-page report listing each food and its calories.
func WritePDF(w io.Writer, recs []dataset.FoodRecord) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(190, 10, reportTitle, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	for _, r := range recs {
		line := fmt.Sprintf("%s - %s cal", r.Food, FormatCalories(r.Calories))
		pdf.CellFormat(0, 10, tr(line), "", 1, "", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build pdf: %w", err)
	}
	return pdf.Output(w)
}

// WritePieChart writes an HTML page with one pie slice per food.
func WritePieChart(w io.Writer, recs []dataset.FoodRecord) error {
	if len(recs) == 0 {
		return ErrNoRecords
	}

	items := make([]opts.PieData, 0, len(recs))
	for _, r := range recs {
		items = append(items, opts.PieData{Name: r.Food, Value: r.Calories})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: chartTitle}),
		charts.WithTitleOpts(opts.Title{Title: chartTitle}),
	)
	pie.AddSeries(dataset.ColumnCalories, items)

	return pie.Render(w)
}

// WriteBundle writes a zip holding the CSV, the PDF and, when there is
// something to chart, the pie chart. The documents render concurrently.
func WriteBundle(ctx context.Context, w io.Writer, recs []dataset.FoodRecord) error {
	type part struct {
		format Format
		buf    bytes.Buffer
	}
	parts := []*part{{format: FormatCSV}, {format: FormatPDF}}
	if len(recs) > 0 {
		parts = append(parts, &part{format: FormatChart})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range parts {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := Write(gctx, &p.buf, p.format, recs); err != nil {
				return fmt.Errorf("render %s: %w", p.format, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.Create(files[p.format].Name)
		if err != nil {
			return err
		}
		if _, err := p.buf.WriteTo(fw); err != nil {
			return err
		}
	}
	return zw.Close()
}
