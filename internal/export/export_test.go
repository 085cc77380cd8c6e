package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kalambet/kieview/internal/model"
)

func structured(fields ...model.FieldValue) *model.ExtractionResult {
	r := model.NewStructuredResult(fields)
	return &r
}

func text(s string) *model.ExtractionResult {
	r := model.NewTextResult(s)
	return &r
}

func fv(name, value string) model.FieldValue {
	return model.FieldValue{Name: name, Value: model.StringValue(value)}
}

func TestFlattenUnionColumns(t *testing.T) {
	b := model.Batch{
		Name: "Mixed Batch",
		Documents: []model.Document{
			{
				Filename:      "a.pdf",
				Status:        model.StatusCompleted,
				ExtractedData: structured(fv("invoiceNumber", "INV-1"), fv("total", "$100")),
			},
			{
				Filename: "skip_processing.pdf",
				Status:   model.StatusProcessing,
			},
			{
				Filename:      "b.pdf",
				Status:        model.StatusCompleted,
				ExtractedData: structured(fv("total", "$200"), fv("dueDate", "2024-02-01")),
			},
			{
				Filename: "skip_no_data.pdf",
				Status:   model.StatusCompleted,
			},
		},
	}

	table, err := Flatten(b)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}

	wantHeader := []string{"filename", "invoiceNumber", "total", "dueDate"}
	if !reflect.DeepEqual(table.Header, wantHeader) {
		t.Errorf("header = %v, want %v (union in first-seen order)", table.Header, wantHeader)
	}

	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if !reflect.DeepEqual(table.Rows[0], []string{"a.pdf", "INV-1", "$100", ""}) {
		t.Errorf("row 0 = %v", table.Rows[0])
	}
	if !reflect.DeepEqual(table.Rows[1], []string{"b.pdf", "", "$200", "2024-02-01"}) {
		t.Errorf("row 1 = %v", table.Rows[1])
	}
}

func TestFlattenTextResponseColumn(t *testing.T) {
	b := model.Batch{
		Name: "Invoices",
		Documents: []model.Document{
			{
				Filename:      "invoice_001.pdf",
				Status:        model.StatusCompleted,
				ExtractedData: text("This invoice shows a total of $800."),
			},
		},
	}

	table, err := Flatten(b)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if !reflect.DeepEqual(table.Header, []string{"filename", "response"}) {
		t.Errorf("header = %v", table.Header)
	}
	if table.Rows[0][1] != "This invoice shows a total of $800." {
		t.Errorf("response cell = %q", table.Rows[0][1])
	}
}

func TestFlattenListCollapsesToCount(t *testing.T) {
	b := model.Batch{
		Documents: []model.Document{
			{
				Filename: "long_receipt.jpg",
				Status:   model.StatusCompleted,
				ExtractedData: structured(model.FieldValue{
					Name: "items",
					Value: model.ListValue([]model.LineItem{
						{Name: "Whole Milk Gallon"}, {Name: "Sourdough Bread"}, {Name: "Avocado Hass 4pk"},
					}),
				}),
			},
		},
	}

	table, err := Flatten(b)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if table.Rows[0][1] != "3 items" {
		t.Errorf("items cell = %q, want %q", table.Rows[0][1], "3 items")
	}
}

func TestFlattenNoData(t *testing.T) {
	b := model.Batch{
		Documents: []model.Document{
			{Filename: "p.pdf", Status: model.StatusProcessing},
			{Filename: "c.pdf", Status: model.StatusCompleted}, // no extracted data
		},
	}
	if _, err := Flatten(b); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestCSV(t *testing.T) {
	b := model.Batch{
		Documents: []model.Document{
			{
				Filename:      "a.pdf",
				Status:        model.StatusCompleted,
				ExtractedData: structured(fv("merchantName", "Best, Electronics"), fv("total", "$85.00")),
			},
		},
	}

	var buf bytes.Buffer
	if err := CSV(&buf, b); err != nil {
		t.Fatalf("csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	if records[1][1] != "Best, Electronics" {
		t.Errorf("comma-bearing value survived as %q", records[1][1])
	}
}

func TestCSVNoData(t *testing.T) {
	var buf bytes.Buffer
	err := CSV(&buf, model.Batch{})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes despite no data", buf.Len())
	}
}

func TestExcel(t *testing.T) {
	b := model.Batch{
		Name: "Receipts",
		Documents: []model.Document{
			{
				Filename:      "receipt_1.jpg",
				Status:        model.StatusCompleted,
				ExtractedData: structured(fv("merchantName", "Target"), fv("totalAmount", "$50.00")),
			},
			{
				Filename:      "receipt_2.jpg",
				Status:        model.StatusCompleted,
				ExtractedData: structured(fv("merchantName", "Costco"), fv("totalAmount", "$85.00")),
			},
		},
	}

	var buf bytes.Buffer
	if err := Excel(&buf, b); err != nil {
		t.Fatalf("excel: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reading workbook back: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], []string{"filename", "merchantName", "totalAmount"}) {
		t.Errorf("header row = %v", rows[0])
	}
	if rows[2][1] != "Costco" {
		t.Errorf("cell B3 = %q, want Costco", rows[2][1])
	}
}

func TestExcelNoData(t *testing.T) {
	var buf bytes.Buffer
	if err := Excel(&buf, model.Batch{}); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestDocumentExport(t *testing.T) {
	doc := model.Document{
		Filename:      "passport_doe_john.pdf",
		Status:        model.StatusCompleted,
		ExtractedData: structured(fv("surname", "Doe"), fv("givenNames", "John Michael")),
	}

	var buf bytes.Buffer
	if err := Document(&buf, doc); err != nil {
		t.Fatalf("document export: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if !reflect.DeepEqual(records[0], []string{"filename", "surname", "givenNames"}) {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "passport_doe_john.pdf" {
		t.Errorf("filename cell = %q", records[1][0])
	}
}

func TestDocumentExportNoData(t *testing.T) {
	var buf bytes.Buffer
	err := Document(&buf, model.Document{Filename: "x.pdf", Status: model.StatusProcessing})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestFilenames(t *testing.T) {
	b := model.Batch{Name: "Q1  2024\tInvoices"}
	if got := Filename(b, "csv"); got != "Q1_2024_Invoices.csv" {
		t.Errorf("Filename = %q", got)
	}
	if got := Filename(b, "xlsx"); !strings.HasSuffix(got, ".xlsx") {
		t.Errorf("Filename = %q", got)
	}

	doc := model.Document{Filename: "invoice_001_jan2024.pdf"}
	if got := DocumentFilename(b, doc); got != "Q1_2024_Invoices_invoice_001_jan2024.csv" {
		t.Errorf("DocumentFilename = %q", got)
	}
}
