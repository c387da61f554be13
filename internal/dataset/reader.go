// Package dataset loads the training and candidate files into typed tables.
//
// Columns named in TextColumns are kept as strings; every other column must
// hold finite numbers in every row. Header and cell problems are reported as
// *domain.DataLoadError at load time, before any extraction happens.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hydromap/backend/internal/domain"
)

// Reader loads tabular files
type Reader struct {
	textColumns map[string]bool
	sheet       string
}

// NewReader creates a reader. sheet selects the spreadsheet tab; empty means the first one.
func NewReader(textColumns []string, sheet string) *Reader {
	text := make(map[string]bool, len(textColumns))
	for _, c := range textColumns {
		text[c] = true
	}
	return &Reader{textColumns: text, sheet: sheet}
}

// ReadTraining loads the labeled dataset, a comma separated file with a header row
func (r *Reader) ReadTraining(path string) (*domain.Table, error) {
	return r.readCSV(path)
}

// ReadCandidates loads the candidate sites from a spreadsheet (.xlsx, .xlsm) or a .csv file
func (r *Reader) ReadCandidates(path string) (*domain.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return r.readSpreadsheet(path)
	case ".csv":
		return r.readCSV(path)
	default:
		return nil, &domain.DataLoadError{Path: path, Reason: "unsupported file type " + strconv.Quote(filepath.Ext(path))}
	}
}

func (r *Reader) readCSV(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.DataLoadError{Path: path, Reason: "failed to open", Err: err}
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.DataLoadError{Path: path, Reason: "empty file, header row required"}
	}
	if err != nil {
		return nil, &domain.DataLoadError{Path: path, Reason: "failed to read header", Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DataLoadError{Path: path, Reason: "malformed csv", Err: err}
		}
		records = append(records, rec)
	}

	return r.build(path, header, records)
}

func (r *Reader) readSpreadsheet(path string) (*domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &domain.DataLoadError{Path: path, Reason: "failed to open spreadsheet", Err: err}
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &domain.DataLoadError{Path: path, Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	// raw values, so number formats such as "#,##0.00" or "0%" do not leak into parsing
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &domain.DataLoadError{Path: path, Reason: "failed to read sheet " + strconv.Quote(sheet), Err: err}
	}
	if len(rows) == 0 {
		return nil, &domain.DataLoadError{Path: path, Reason: "empty sheet, header row required"}
	}

	// GetRows trims trailing empty cells, build pads them back. Blank rows are skipped.
	var records [][]string
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		records = append(records, row)
	}
	return r.build(path, rows[0], records)
}

// build checks the header and converts raw records into a typed table
func (r *Reader) build(path string, header []string, records [][]string) (*domain.Table, error) {
	if len(header) == 0 {
		return nil, &domain.DataLoadError{Path: path, Reason: "header row is empty"}
	}

	t := &domain.Table{
		Source: path,
		Header: make([]string, len(header)),
		Kinds:  make([]domain.Kind, len(header)),
		Rows:   make([][]domain.Value, 0, len(records)),
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, &domain.DataLoadError{Path: path, Reason: fmt.Sprintf("header column %d has no name", i+1)}
		}
		if seen[name] {
			return nil, &domain.DataLoadError{Path: path, Reason: "duplicate header column " + strconv.Quote(name)}
		}
		seen[name] = true
		t.Header[i] = name
		if r.textColumns[name] {
			t.Kinds[i] = domain.KindText
		}
	}

	for n, rec := range records {
		line := n + 2
		if len(rec) > len(header) {
			return nil, &domain.DataLoadError{Path: path, Reason: fmt.Sprintf("row %d has %d fields, header has %d", line, len(rec), len(header))}
		}
		row := make([]domain.Value, len(header))
		for i := range header {
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			if t.Kinds[i] == domain.KindText {
				row[i].Text = cell
				continue
			}
			v, err := parseNumber(cell)
			if err != nil {
				return nil, &domain.DataLoadError{Path: path, Reason: fmt.Sprintf("row %d column %q", line, t.Header[i]), Err: err}
			}
			row[i].Number = v
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

func parseNumber(cell string) (float64, error) {
	if cell == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable value %q", cell)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", cell)
	}
	return v, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
