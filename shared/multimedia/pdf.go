package multimedia

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/wmo-raf/capwire/shared/models"
)

// Branding carries the organisation identity printed on PDF documents.
type Branding struct {
	OrgName       string
	SenderContact string
	AlertsURL     string
}

// BuildPDF renders the alert detail document: headline, org identity,
// issue time, the area map when available, then per-info description and
// instruction blocks. Returns the PDF bytes.
func BuildPDF(alert *models.Alert, branding Branding, mapPNG []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(alert.Headline(), true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// header: org branding
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 6, branding.OrgName, "", 1, "L", false, 0, "")
	if branding.SenderContact != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, branding.SenderContact, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// title and issue time
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 8, alert.Headline(), "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued %s", alert.Sent.Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(mapPNG) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("areamap", opts, bytes.NewReader(mapPNG))
		pdf.ImageOptions("areamap", 15, pdf.GetY(), 120, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	for i := range alert.Infos {
		writeInfoSection(pdf, alert, &alert.Infos[i])
	}

	if branding.AlertsURL != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, branding.AlertsURL, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInfoSection(pdf *fpdf.Fpdf, alert *models.Alert, info *models.AlertInfo) {
	color := models.ColorForSeverity(info.Severity)
	r, g, b := hexToRGB(color.Fill)

	pdf.Ln(3)
	pdf.SetFillColor(r, g, b)
	pdf.CellFormat(3, 6, "", "", 0, "", true, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, fmt.Sprintf(" %s - %s severity, %s", info.Event, info.Severity, info.Urgency), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	if info.Expires != nil {
		pdf.CellFormat(0, 5, fmt.Sprintf("Effective %s until %s",
			info.EffectiveAt(alert.Sent).Format("2006-01-02 15:04"),
			info.Expires.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	}
	for _, area := range info.Areas {
		pdf.CellFormat(0, 5, area.Desc(), "", 1, "L", false, 0, "")
	}
	pdf.Ln(1)

	pdf.SetTextColor(0, 0, 0)
	if info.Description != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, info.Description, "", "L", false)
		pdf.Ln(1)
	}
	if info.Instruction != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 5, "Instructions", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, info.Instruction, "", "L", false)
	}
	if info.Contact != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 5, fmt.Sprintf("Contact: %s", info.Contact), "", 1, "L", false, 0, "")
	}
}

func hexToRGB(hex string) (int, int, int) {
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 51, 102, 255
	}
	return r, g, b
}
