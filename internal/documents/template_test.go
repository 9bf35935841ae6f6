package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00", Money(0))
	assert.Equal(t, "500.00", Money(500))
	assert.Equal(t, "1,234.50", Money(1234.5))
	assert.Equal(t, "2,480,000.00", Money(2480000))
}

func TestRenderDocumentHTML(t *testing.T) {
	doc := testDocument()

	html, err := RenderDocumentHTML(doc)
	require.NoError(t, err)

	assert.Contains(t, html, "Proposal: Website relaunch")
	assert.Contains(t, html, "PROP-202503-0007")
	assert.Contains(t, html, "Acme Holdings")
	assert.Contains(t, html, "March 15, 2025")
	assert.Contains(t, html, "Discovery workshop")
	assert.Contains(t, html, "480.00")
	assert.Contains(t, html, "Valid for 30 days.")
	// no line carries a discount, so the column stays hidden
	assert.NotContains(t, html, "Discount")
}

func TestRenderDocumentHTMLShowsDiscountColumn(t *testing.T) {
	doc := testDocument()
	doc.Lines[0].DiscountPercent = 10

	html, err := RenderDocumentHTML(doc)
	require.NoError(t, err)
	assert.Contains(t, html, "Discount")
	assert.Contains(t, html, "10%")
}

func TestLineLabelFallsBackToServiceID(t *testing.T) {
	desc := "Custom engagement"
	assert.Equal(t, "Custom engagement", lineLabel(&desc, 4))

	empty := ""
	assert.Equal(t, "Service #4", lineLabel(&empty, 4))
	assert.Equal(t, "Service #9", lineLabel(nil, 9))
}
