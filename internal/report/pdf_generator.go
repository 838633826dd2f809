package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/sweep_analyzer_go/internal/analysis"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)

	maxListedValues = 8
)

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func()
	lineHeight  float64
	currentY    float64 // manually tracked Y position for flowing content
	pageHeight  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6, // mm
		pageHeight:  pdfPageHeightLandscape - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 14)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellMissing"] = func() {
		s.pdf.SetFont("Arial", "I", 9)
		s.pdf.SetTextColor(150, 150, 150)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitLines([]byte(text), pdfContentWidth)
	s.checkAddPage(float64(max(1, len(lines))) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width float64, height float64, caption string) {
	s.pdf.RegisterImageReader(imageName, "PNG", bytes.NewReader(imageBytes))
	if width > pdfContentWidth {
		height *= pdfContentWidth / width
		width = pdfContentWidth
	}

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	s.pdf.Image(imageName, pdfMargin, s.currentY, width, height, false, "PNG", 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "normal", "C")
	}
	s.addSpacer(2)
}

// table draws a header row then one row per entry. relWidths are fractions
// of the content width. A cell styled by cellStyle(row, col) == "" uses
// tableCell.
func (s *pdfStyler) table(headers []string, relWidths []float64, rows [][]string, cellStyle func(row, col int) string) {
	widths := make([]float64, len(relWidths))
	for i, rel := range relWidths {
		widths[i] = rel * pdfContentWidth
	}

	header := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for i, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(2 * s.lineHeight)
	header()
	for r, row := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			header()
		}
		x := pdfMargin
		for c, cell := range row {
			style := "tableCell"
			if cellStyle != nil {
				if st := cellStyle(r, c); st != "" {
					style = st
				}
			}
			s.applyStyle(style)
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[c], s.lineHeight, cell, "1", 0, "C", false, 0, "")
			x += widths[c]
		}
		s.currentY += s.lineHeight
	}
	s.addSpacer(4)
}

// ReportData is everything the summary report shows.
type ReportData struct {
	Experiments []string
	Summaries   map[string]analysis.Summary
	TimeColumn  string
	FilesRead   int
	Recomputed  bool
	Warnings    []string
	Images      map[string][]byte // keyed by overviewKey and heatmapKey
}

func overviewKey(experiment, metric string) string {
	return "overview_" + experiment + "_" + metric
}

func heatmapKey(experiment, metric string) string {
	return "heatmap_" + experiment + "_" + metric
}

// finalStat is the mean and standard deviation of one variable at the last
// time sample, averaged over every parameter.
type finalStat struct {
	Name      string
	Time      float64
	Mean, Std float64
	Present   bool
}

func finalTimeStats(summary analysis.Summary, timeColumn string) []finalStat {
	if summary.Mean == nil || summary.Mean.IsEmpty() {
		return nil
	}
	merge := dimsExcept(summary.Mean, timeColumn)
	means := analysis.MeanOver(summary.Mean, merge)
	stds := analysis.MeanOver(summary.Std, merge)

	var times []float64
	if d := means.Dim(timeColumn); d != nil {
		for _, v := range d.Values {
			times = append(times, v.Num)
		}
	}
	stats := make([]finalStat, 0, len(means.Variables))
	for _, name := range means.VariableNames() {
		st := finalStat{Name: name}
		mv, sv := means.Variable(name), stds.Variable(name)
		for i := len(times) - 1; i >= 0; i-- {
			if m, ok := mv.At(i); ok {
				st.Time, st.Mean, st.Present = times[i], m, true
				if sv != nil {
					st.Std, _ = sv.At(i)
				}
				break
			}
		}
		stats = append(stats, st)
	}
	return stats
}

func listValues(d analysis.Dimension) string {
	parts := make([]string, 0, maxListedValues+1)
	for i, v := range d.Values {
		if i == maxListedValues {
			parts = append(parts, fmt.Sprintf("... (%d more)", len(d.Values)-maxListedValues))
			break
		}
		parts = append(parts, v.String())
	}
	return strings.Join(parts, ", ")
}

// RenderReportImages draws the overview chart of every variable and, when an
// experiment sweeps at least two parameters, the final-time heatmap over the
// first two.
func RenderReportImages(data *ReportData, opts ChartOptions) (map[string][]byte, error) {
	images := make(map[string][]byte)
	for _, name := range data.Experiments {
		summary, ok := data.Summaries[name]
		if !ok || summary.Mean == nil || summary.Mean.IsEmpty() {
			continue
		}
		viable := viableDims(summary.Mean, opts.TimeColumn)
		for _, metric := range summary.Mean.VariableNames() {
			img, err := OverviewChart(summary, metric, opts)
			if err == nil {
				images[overviewKey(name, metric)] = img
			}
			if len(viable) < 2 {
				continue
			}
			img, err = FinalTimeHeatmap(summary, metric, viable[0], viable[1], opts)
			if err != nil {
				return nil, fmt.Errorf("experiment %s: heatmap of %s: %w", name, metric, err)
			}
			images[heatmapKey(name, metric)] = img
		}
	}
	return images, nil
}

// BuildPDFReport writes the summary report to path.
func BuildPDFReport(path string, data *ReportData) error {
	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AddPage()

	styler := newPDFStyler(pdf)
	styler.writeParagraph("Parameter Sweep Summary Report", "h1", "C")
	styler.addSpacer(3)
	source := "loaded from cache"
	if data.Recomputed {
		source = fmt.Sprintf("recomputed from %d data files", data.FilesRead)
	}
	styler.writeParagraph(fmt.Sprintf("%d experiments, summaries %s.", len(data.Experiments), source), "normal", "L")
	if len(data.Warnings) > 0 {
		styler.writeParagraph("Warnings:\n"+strings.Join(data.Warnings, "\n"), "normal", "L")
	}
	styler.addSpacer(5)

	overviewWidth := pdfContentWidth * 0.8
	overviewHeight := overviewWidth / 2
	heatmapWidth := pdfContentWidth * 0.5
	heatmapHeight := heatmapWidth * 0.75

	for i, name := range data.Experiments {
		if i > 0 {
			styler.newPage()
		}
		styler.writeParagraph("Experiment "+name, "h2", "L")
		summary, ok := data.Summaries[name]
		if !ok || summary.Mean == nil || summary.Mean.IsEmpty() {
			styler.writeParagraph("No data for this experiment.", "normal", "L")
			continue
		}

		dimRows := make([][]string, 0, len(summary.Mean.Dims))
		for _, d := range summary.Mean.Dims {
			dimRows = append(dimRows, []string{d.Name, fmt.Sprintf("%d", len(d.Values)), listValues(d)})
		}
		styler.table([]string{"Dimension", "Size", "Values"}, []float64{0.2, 0.1, 0.7}, dimRows, nil)

		stats := finalTimeStats(summary, data.TimeColumn)
		statRows := make([][]string, 0, len(stats))
		for _, st := range stats {
			if !st.Present {
				statRows = append(statRows, []string{st.Name, "-", "missing", "missing"})
				continue
			}
			statRows = append(statRows, []string{st.Name, fmt.Sprintf("%g", st.Time),
				fmt.Sprintf("%.4g", st.Mean), fmt.Sprintf("%.4g", st.Std)})
		}
		styler.table([]string{"Variable", "Time", "Mean", "Std Dev"}, []float64{0.4, 0.2, 0.2, 0.2}, statRows,
			func(row, col int) string {
				if !stats[row].Present {
					return "tableCellMissing"
				}
				return ""
			})

		for _, st := range stats {
			if img, ok := data.Images[overviewKey(name, st.Name)]; ok && len(img) > 0 {
				styler.addImage(img, overviewKey(name, st.Name), overviewWidth, overviewHeight,
					fmt.Sprintf("%s over time, averaged over every parameter", st.Name))
			}
			if img, ok := data.Images[heatmapKey(name, st.Name)]; ok && len(img) > 0 {
				styler.addImage(img, heatmapKey(name, st.Name), heatmapWidth, heatmapHeight,
					fmt.Sprintf("%s at the final time sample", st.Name))
			}
		}
	}

	return pdf.OutputFileAndClose(path)
}
