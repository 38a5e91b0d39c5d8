package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexo/nexo-backend/internal/sales/repository"
)

func strPtr(s string) *string { return &s }

func TestRenderReceipt(t *testing.T) {
	sale := &repository.Sale{
		ID:               "sale-1",
		TotalAmountCents: 2450,
		CreatedAt:        time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		ClientName:       strPtr("María García"),
		SellerName:       strPtr("Ana Vendedora"),
		Items: []*repository.SaleItem{
			{
				ProductID:      "prod-1",
				UnitPriceCents: 800,
				Quantity:       3,
				ProductName:    strPtr("Martillo"),
				ProductSKU:     strPtr("MAR-001"),
			},
			{
				ProductID:      "prod-2",
				UnitPriceCents: 50,
				Quantity:       1,
				ProductName:    strPtr("Tornillo"),
				ProductSKU:     strPtr("TOR-002"),
			},
		},
	}

	content, err := renderReceipt(sale, "Ferretería Central")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")), "output should be a PDF document")
	assert.Greater(t, len(content), 1000)
}

func TestRenderReceiptAnonymousClient(t *testing.T) {
	sale := &repository.Sale{
		ID:               "sale-2",
		TotalAmountCents: 800,
		CreatedAt:        time.Now(),
		Items: []*repository.SaleItem{
			{ProductID: "prod-1", UnitPriceCents: 800, Quantity: 1},
		},
	}

	content, err := renderReceipt(sale, "Ferretería Central")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{2450, "24.50"},
		{1099999, "10999.99"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCents(tt.cents))
	}
}
