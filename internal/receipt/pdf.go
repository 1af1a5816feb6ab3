// Package receipt renders repair receipts as small A6 PDF documents.
package receipt

import (
	"bytes"
	"fmt"

	"taller/internal/model"

	"github.com/go-pdf/fpdf"
)

const DefaultBusinessName = "Taller"

type Renderer struct {
	businessName string
}

func NewRenderer(businessName string) *Renderer {
	if businessName == "" {
		businessName = DefaultBusinessName
	}
	return &Renderer{businessName: businessName}
}

// Render lays the receipt out on one A6 page and returns the PDF bytes.
func (r *Renderer) Render(rec model.Receipt) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 105, Ht: 148},
	})
	pdf.SetMargins(6, 6, 6)
	pdf.SetAutoPageBreak(true, 6)
	pdf.AddPage()
	// core fonts are cp1252; accented Spanish text must be translated
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right
	labelW := contentW * 0.45
	valueW := contentW - labelW

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(r.businessName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, tr("Recibo de reparación"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(contentW, 4, rec.Number, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, rec.IssuedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.Line(left, pdf.GetY(), pageW-right, pdf.GetY())
	pdf.Ln(2)

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 7)
		pdf.CellFormat(labelW, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.MultiCell(valueW, 5, tr(value), "", "L", false)
	}

	row("Cliente:", rec.CustomerName)
	if rec.Contact != "" {
		row("Contacto:", rec.Contact)
	}
	row("Pieza:", rec.Description)
	row("Piezas:", fmt.Sprintf("%d", rec.PieceCount))
	row("Ingreso:", rec.IntakeDate.Format("02/01/2006"))
	if rec.DeliveryDate != nil {
		row("Entrega:", rec.DeliveryDate.Format("02/01/2006"))
	}
	row("Estado:", rec.State)
	if rec.AssignedTo != "" {
		row("Responsable:", rec.AssignedTo)
	}
	if rec.MaterialsUsed != "" {
		row("Materiales:", rec.MaterialsUsed)
	}

	pdf.Ln(1)
	pdf.Line(left, pdf.GetY(), pageW-right, pdf.GetY())
	pdf.Ln(2)

	money := func(label, amount string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 8)
		pdf.CellFormat(labelW, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, "$"+amount, "", 1, "R", false, 0, "")
	}
	if !rec.MaterialCost.IsZero() {
		money("Materiales:", rec.MaterialCost.StringFixed(2), false)
	}
	money("Costo total:", rec.TotalCost.StringFixed(2), false)
	money("Anticipo:", rec.Deposit.StringFixed(2), false)
	money("Saldo pendiente:", rec.PendingBalance.StringFixed(2), true)

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Gracias por su confianza"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt %s: %w", rec.Number, err)
	}
	return buf.Bytes(), nil
}
