// Package importer parses uploaded feedback files (CSV/XLSX/XLS) into
// normalized comment records.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

// Comment length bounds (exclusive), applied after trimming.
const (
	minCommentRunes = 5
	maxCommentRunes = 1000
)

// Logical field names ingestion resolves headers against.
const (
	fieldComment  = "comment"
	fieldUsername = "username"
)

// logicalField pairs a canonical field name with the header spellings that
// resolve to it. Order matters twice: fields are claimed in declared order
// (a header satisfying two fields goes to the first), and within a field the
// first alias present in the header row wins. Matching is case-sensitive.
type logicalField struct {
	name    string
	aliases []string
}

var logicalFields = []logicalField{
	{fieldComment, []string{"comment", "comentario", "feedback", "review", "opinion", "text"}},
	{fieldUsername, []string{"username", "user", "usuario", "name", "nombre"}},
	{"channel", []string{"channel", "canal", "platform", "plataforma", "source"}},
	{"date", []string{"date", "fecha", "timestamp", "created_at"}},
	{"sku", []string{"sku"}},
}

// Parser turns raw uploaded file bytes into comment records.
type Parser struct {
	logger logger.Logger
}

func NewParser(log logger.Logger) *Parser {
	return &Parser{logger: log}
}

// Parse reads the uploaded file and returns the filtered, normalized record
// sequence. Zero valid rows yields an empty slice and nil error; the caller
// decides whether that is a rejection.
func (p *Parser) Parse(data []byte, filename string) ([]models.CommentRecord, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var rows [][]string
	var err error
	switch ext {
	case ".csv":
		rows, err = readCSV(data)
	case ".xlsx", ".xls":
		rows, err = readExcel(data)
	default:
		return nil, &UnsupportedFormatError{Ext: ext}
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s file: %w", ext, err)
	}

	if len(rows) == 0 {
		return nil, &MissingColumnError{Available: nil}
	}

	header := rows[0]
	columns := resolveColumns(header)

	commentIdx, ok := columns[fieldComment]
	if !ok {
		return nil, &MissingColumnError{Available: header}
	}

	records := make([]models.CommentRecord, 0, len(rows)-1)
	dropped := 0
	for _, row := range rows[1:] {
		rec, valid := buildRecord(row, header, columns, commentIdx)
		if !valid {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	p.logger.Info("Feedback file parsed",
		logger.String("filename", filename),
		logger.Int("rows", len(rows)-1),
		logger.Int("valid_records", len(records)),
		logger.Int("dropped", dropped),
	)

	return records, nil
}

// resolveColumns maps logical field names to header column indices. Headers
// not claimed by any logical field pass through under their own name.
func resolveColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	claimed := make(map[int]bool, len(header))

	for _, lf := range logicalFields {
		for _, alias := range lf.aliases {
			idx, found := findHeader(header, alias, claimed)
			if found {
				columns[lf.name] = idx
				claimed[idx] = true
				break
			}
		}
	}

	for i, h := range header {
		if claimed[i] {
			continue
		}
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, taken := columns[name]; taken {
			continue
		}
		columns[name] = i
	}

	return columns
}

func findHeader(header []string, alias string, claimed map[int]bool) (int, bool) {
	for i, h := range header {
		if claimed[i] {
			continue
		}
		if strings.TrimSpace(h) == alias {
			return i, true
		}
	}
	return 0, false
}

// buildRecord normalizes one data row. Returns valid=false when the comment
// is missing or its trimmed length falls outside the accepted bounds.
func buildRecord(row, header []string, columns map[string]int, commentIdx int) (models.CommentRecord, bool) {
	comment := strings.TrimSpace(cell(row, commentIdx))
	if comment == "" {
		return models.CommentRecord{}, false
	}
	n := utf8.RuneCountInString(comment)
	if n <= minCommentRunes || n >= maxCommentRunes {
		return models.CommentRecord{}, false
	}

	rec := models.CommentRecord{
		Comment:  comment,
		Username: models.AnonymousAuthor,
	}

	for name, idx := range columns {
		if name == fieldComment {
			continue
		}
		val := strings.TrimSpace(cell(row, idx))
		if val == "" {
			continue
		}
		if name == fieldUsername {
			rec.Username = val
			continue
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]string)
		}
		rec.Fields[name] = val
	}

	return rec, true
}

// cell guards against ragged rows (short XLSX rows, sparse trailing cells).
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // UTF-8 BOM
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // tolerate ragged rows
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readExcel(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
