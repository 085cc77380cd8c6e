// Package export flattens a batch's extraction results into CSV or Excel
// downloads.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kalambet/kieview/internal/model"
)

// ErrNoData is returned when a batch has no completed documents with
// extracted data; callers surface it once and produce no file.
var ErrNoData = errors.New("no completed documents to export")

// SheetName is the single worksheet written to Excel exports.
const SheetName = "Documents"

// Table is the flattened export shape: a header row plus one row per
// eligible document.
type Table struct {
	Header []string
	Rows   [][]string
}

// Flatten builds the export table for a batch: one row per completed
// document with extracted data. Text results produce a "response" column;
// structured results produce the union of field names in first-seen order.
// The filename column always leads.
func Flatten(b model.Batch) (Table, error) {
	type flatDoc struct {
		filename string
		cells    map[string]string
	}

	header := []string{"filename"}
	seen := map[string]bool{"filename": true}
	var docs []flatDoc

	for _, doc := range b.Documents {
		if doc.Status != model.StatusCompleted || doc.ExtractedData == nil {
			continue
		}
		fd := flatDoc{filename: doc.Filename, cells: map[string]string{}}
		switch doc.ExtractedData.Kind() {
		case model.ResultText:
			if !seen["response"] {
				seen["response"] = true
				header = append(header, "response")
			}
			fd.cells["response"] = doc.ExtractedData.Text()
		case model.ResultStructured:
			for _, f := range doc.ExtractedData.Fields() {
				if !seen[f.Name] {
					seen[f.Name] = true
					header = append(header, f.Name)
				}
				fd.cells[f.Name] = f.Value.Display()
			}
		}
		docs = append(docs, fd)
	}

	if len(docs) == 0 {
		return Table{}, ErrNoData
	}

	rows := make([][]string, len(docs))
	for i, fd := range docs {
		row := make([]string, len(header))
		row[0] = fd.filename
		for j, col := range header[1:] {
			row[j+1] = fd.cells[col]
		}
		rows[i] = row
	}
	return Table{Header: header, Rows: rows}, nil
}

// CSV writes the batch export as CSV.
func CSV(w io.Writer, b model.Batch) error {
	table, err := Flatten(b)
	if err != nil {
		return err
	}
	return writeCSV(w, table)
}

// Excel writes the batch export as an xlsx workbook with a single
// Documents sheet of the same shape as the CSV.
func Excel(w io.Writer, b model.Batch) error {
	table, err := Flatten(b)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := writeSheetRow(f, 1, table.Header); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := writeSheetRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, rowNum int, cells []string) error {
	for col, cell := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("addressing cell: %w", err)
		}
		if err := f.SetCellValue(SheetName, name, cell); err != nil {
			return fmt.Errorf("setting cell %s: %w", name, err)
		}
	}
	return nil
}

// Document writes a single document's result as CSV. A document without
// extracted data yields ErrNoData.
func Document(w io.Writer, doc model.Document) error {
	if doc.ExtractedData == nil {
		return ErrNoData
	}

	header := []string{"filename"}
	row := []string{doc.Filename}
	switch doc.ExtractedData.Kind() {
	case model.ResultText:
		header = append(header, "response")
		row = append(row, doc.ExtractedData.Text())
	case model.ResultStructured:
		for _, f := range doc.ExtractedData.Fields() {
			header = append(header, f.Name)
			row = append(row, f.Value.Display())
		}
	}
	return writeCSV(w, Table{Header: header, Rows: [][]string{row}})
}

func writeCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename derives the download name for a batch export, collapsing
// whitespace in the batch name to underscores.
func Filename(b model.Batch, format string) string {
	return whitespace.ReplaceAllString(b.Name, "_") + "." + format
}

// DocumentFilename derives the download name for a single-document export.
func DocumentFilename(b model.Batch, doc model.Document) string {
	base := doc.Filename
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return fmt.Sprintf("%s_%s.csv", whitespace.ReplaceAllString(b.Name, "_"), base)
}
