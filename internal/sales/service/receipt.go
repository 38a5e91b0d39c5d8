package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/nexo/nexo-backend/internal/sales/repository"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

const anonymousClientName = "Consumidor Final"

// Receipt is a rendered PDF receipt ready to send
type Receipt struct {
	FileName string
	Content  []byte
}

// Receipt renders the PDF receipt for a sale
func (s *SaleService) Receipt(ctx context.Context, saleID string) (*Receipt, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	orgName := "NEXO"
	if sale.OrganizationName != nil {
		orgName = *sale.OrganizationName
	} else if name, err := tenant.OrgName(ctx); err == nil {
		orgName = name
	}

	content, err := renderReceipt(sale, orgName)
	if err != nil {
		return nil, err
	}

	return &Receipt{
		FileName: fmt.Sprintf("Receipt_%d.pdf", sale.CreatedAt.Unix()),
		Content:  content,
	}, nil
}

func renderReceipt(sale *repository.Sale, orgName string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Recibo de venta"), false)
	pdf.AddPage()

	// Header.
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(orgName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Recibo de venta"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, sale.CreatedAt.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	clientName := anonymousClientName
	if sale.ClientName != nil {
		clientName = *sale.ClientName
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Cliente: "+clientName), "", 1, "L", false, 0, "")
	if sale.SellerName != nil {
		pdf.CellFormat(0, 6, tr("Vendedor: "+*sale.SellerName), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Item table.
	widths := []float64{90, 20, 40, 40}
	headers := []string{"Producto", "Cant.", "Precio Unit.", "Subtotal"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(h), "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range sale.Items {
		name := item.ProductID
		if item.ProductName != nil {
			name = *item.ProductName
		}
		if item.ProductSKU != nil {
			name = fmt.Sprintf("%s (%s)", name, *item.ProductSKU)
		}
		pdf.CellFormat(widths[0], 7, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, formatCents(item.UnitPriceCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, formatCents(item.SubtotalCents()), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 9, "TOTAL", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 9, formatCents(sale.TotalAmountCents), "1", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, tr("Gracias por su compra"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
