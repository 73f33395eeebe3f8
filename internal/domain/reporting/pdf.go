package reporting

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// SubjectPDF renders a subject report as a printable PDF. The document is
// built in memory and streamed to w; nothing touches disk.
func SubjectPDF(report SubjectReport, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, tr("Informe de evaluación de pares"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Evaluado: %s", report.Subject.FullName)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Período: %s (%s a %s)",
		report.Period.Name,
		report.Period.StartDate.Format("2006-01-02"),
		report.Period.EndDate.Format("2006-01-02"))))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Evaluadores: %d", report.TotalEvaluators)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, tr("Resultados por categoría"))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range report.Categories {
		pdf.Cell(0, 7, tr(fmt.Sprintf("%s: %.2f (%d%%)", line.Name, line.Average, line.Percentage)))
		pdf.Ln(6)
	}
	if len(report.Categories) == 0 {
		pdf.Cell(0, 7, tr("Sin respuestas registradas"))
		pdf.Ln(6)
	}

	if len(report.Comments) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, tr("Comentarios"))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 11)
		for _, comment := range report.Comments {
			label := comment.Evaluator
			if label == "" {
				label = "Anónimo"
			}
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s: %s", label, comment.Text)), "", "L", false)
			pdf.Ln(2)
		}
	}

	return pdf.Output(w)
}

// OverviewPDF renders the institutional overview of one period.
func OverviewPDF(report Overview, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, tr("Informe de clima institucional"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Período: %s (%s a %s)",
		report.Period.Name,
		report.Period.StartDate.Format("2006-01-02"),
		report.Period.EndDate.Format("2006-01-02"))))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Respuestas: %d", report.TotalResponses)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, tr("Resultados por categoría"))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range report.Categories {
		pdf.Cell(0, 7, tr(fmt.Sprintf("%s: %.2f (%d%%)", line.Name, line.Average, line.Percentage)))
		pdf.Ln(6)
	}
	if len(report.Categories) == 0 {
		pdf.Cell(0, 7, tr("Sin respuestas registradas"))
		pdf.Ln(6)
	}

	if len(report.Comments) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, tr("Comentarios"))
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 11)
		for _, comment := range report.Comments {
			prefix := ""
			if comment.Category != "" {
				prefix = comment.Category + ": "
			}
			pdf.MultiCell(0, 6, tr(prefix+comment.Text), "", "L", false)
			pdf.Ln(2)
		}
	}

	return pdf.Output(w)
}
