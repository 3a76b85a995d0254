package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCanonicalColumn(t *testing.T) {
	tests := map[string]string{
		"Country":                  ColCountry,
		"Product Group":            ColProductGroup,
		"Shipment Mode":            ColShipmentMode,
		"Manufacturing Site":       ColManufacturingSite,
		"Line Item Quantity":       ColQuantity,
		"Unit Price":               ColUnitPrice,
		"Freight Cost (USD)":       ColFreightCost,
		"Delivered to Client Date": ColDeliveredDate,
		"freight_cost_usd":         ColFreightCost,
	}
	for header, want := range tests {
		got, ok := CanonicalColumn(header)
		assert.True(t, ok, header)
		assert.Equal(t, want, got, header)
	}

	_, ok := CanonicalColumn("Weight (Kilograms)")
	assert.False(t, ok)
}

func TestBindHeaders_PrefersExactMatch(t *testing.T) {
	bound := bindHeaders([]string{"Vendor INCO Term", "Country", "Vendor"})
	assert.Equal(t, map[int]string{1: ColCountry, 2: ColVendor}, bound)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-03-07",
		"2025-03-07T15:04:05Z",
		"2025-03-07 09:30:00",
		"7-Mar-25",
		"3/7/2025",
		"Mar 7, 2025",
		"45723",
	} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "Pre-PQ Process", "Date Not Captured", "12"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestParseAmount(t *testing.T) {
	got, ok := ParseAmount(" $1,234.50 ")
	require.True(t, ok)
	assert.Equal(t, "1234.5", got.Decimal.String())

	for _, in := range []string{"", "Freight Included in Commodity Cost", "See ASN-93 (ID#:1281)", "Invoiced Separately"} {
		_, ok := ParseAmount(in)
		assert.False(t, ok, in)
	}
}

func TestParseQuantity(t *testing.T) {
	n, ok := ParseQuantity("1,000")
	require.True(t, ok)
	assert.Equal(t, int64(1000), *n)

	n, ok = ParseQuantity("0")
	require.True(t, ok)
	assert.Equal(t, int64(0), *n)

	n, ok = ParseQuantity("2.6")
	require.True(t, ok)
	assert.Equal(t, int64(3), *n)
}

func TestNormalize(t *testing.T) {
	rec, coerced, ok := Normalize(Row{
		ColCountry:       " Nigeria ",
		ColShipmentMode:  "Air",
		ColQuantity:      "25",
		ColFreightCost:   "Freight Included in Commodity Cost",
		ColDeliveredDate: "2-Jun-06",
	})
	require.True(t, ok)
	assert.Equal(t, 1, coerced)
	assert.Equal(t, "Nigeria", rec.Country)
	assert.Equal(t, int64(25), *rec.Quantity)
	assert.False(t, rec.FreightCost.Valid)
	assert.False(t, rec.UnitPrice.Valid)

	d, ok := rec.Delivered()
	require.True(t, ok)
	assert.Equal(t, "2006-06-02", d.Format("2006-01-02"))
}

func TestNormalize_EmptyRowSkipped(t *testing.T) {
	_, coerced, ok := Normalize(Row{ColCountry: "  ", ColUnitPrice: "n/a"})
	assert.False(t, ok)
	assert.Equal(t, 1, coerced)
}

func TestNormalizeAll_KeepsOrder(t *testing.T) {
	rows := make([]Row, 2000)
	for i := range rows {
		if i%10 == 0 {
			rows[i] = Row{}
			continue
		}
		rows[i] = Row{ColVendor: "v", ColQuantity: strings.Repeat("1", 1+i%3)}
	}

	records, report, err := NormalizeAll(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2000, report.Rows)
	assert.Equal(t, 200, report.Skipped)
	assert.Equal(t, 1800, report.Parsed)
	require.Len(t, records, 1800)

	// Row 1 has quantity "11", row 2 "111", row 3 "1".
	assert.Equal(t, int64(11), *records[0].Quantity)
	assert.Equal(t, int64(111), *records[1].Quantity)
	assert.Equal(t, int64(1), *records[2].Quantity)
}

func TestNormalizeAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NormalizeAll(ctx, []Row{{ColVendor: "v"}})
	assert.ErrorIs(t, err, context.Canceled)
}

const sampleCSV = `ID,Country,Vendor INCO Term,Shipment Mode,Delivered to Client Date,Product Group,Vendor,Line Item Quantity,Unit Price,Freight Cost (USD),Manufacturing Site
1,Côte d'Ivoire,EXW,Air,2-Jun-06,HRDT,RANBAXY Fine Chemicals LTD.,19,0.97,780.34,Ranbaxy Fine Chemicals LTD
2,Vietnam,N/A - From RDC,Air,14-Nov-06,ARV,Aurobindo Pharma Limited,1000,0.03,Freight Included in Commodity Cost,"Aurobindo Unit III, India"
3,,,,,,,,,,
4,Nigeria,EXW,Ocean,2025-01-15,ARV,Vendor X,abc,1.20,4521.5,Plant Y
`

func TestRead_CSV(t *testing.T) {
	records, report, err := Read(context.Background(), strings.NewReader(sampleCSV), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, Report{Rows: 4, Parsed: 3, Skipped: 1, Coerced: 2}, report)
	require.Len(t, records, 3)

	assert.Equal(t, "RANBAXY Fine Chemicals LTD.", records[0].Vendor)
	assert.Equal(t, "Ranbaxy Fine Chemicals LTD", records[0].ManufacturingSite)
	assert.Equal(t, "780.34", records[0].FreightCost.Decimal.String())

	assert.Equal(t, "Aurobindo Unit III, India", records[1].ManufacturingSite)
	assert.False(t, records[1].FreightCost.Valid)

	assert.Nil(t, records[2].Quantity)
	assert.Equal(t, "Ocean", records[2].ShipmentMode)
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Country", "Shipment Mode", "Freight Cost (USD)", "Delivered to Client Date"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Kenya", "Truck", "120.5", "2025-02-01"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Haiti", "Air", "", ""}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, report, err := Read(context.Background(), buf, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Parsed)
	require.Len(t, records, 2)
	assert.Equal(t, "Kenya", records[0].Country)
	assert.Equal(t, "120.5", records[0].FreightCost.Decimal.String())
	assert.Nil(t, records[1].DeliveredAt)
}

func TestRead_XLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Country", "Delivered to Client Date", "Freight Cost (USD)"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Kenya"}))
	require.NoError(t, f.SetCellValue(sheet, "B2", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Haiti", 45662, 1234.5}))

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B3", "B3", dateStyle))
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 8})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "C3", "C3", moneyStyle))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, report, err := Read(context.Background(), buf, FormatXLSX)
	require.NoError(t, err)
	assert.Zero(t, report.Coerced)
	require.Len(t, records, 2)

	want := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, rec := range records {
		require.NotNil(t, rec.DeliveredAt, "record %d", i)
		assert.True(t, rec.DeliveredAt.Equal(want), "record %d delivered %v", i, rec.DeliveredAt)
	}
	assert.Equal(t, "1234.5", records[1].FreightCost.Decimal.String())
}

func TestFormatFromFilename(t *testing.T) {
	f, err := FormatFromFilename("upload.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromFilename("data.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromFilename("data.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
