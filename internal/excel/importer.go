package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/reviewq/pkg/models"
)

// Question types accepted in the type column.
const (
	TypeSingleChoice   = 1
	TypeMultipleChoice = 2
	TypeTrueFalse      = 3
)

var errSkipRow = errors.New("skipping row")

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	ExamColumn  string // Column with the exam ID
	TypeColumn  string // Column with the question type
	TitleColumn string // Column with the question title
	SheetName   string // Name of the sheet to import
	StartRow    int    // The row to start importing from (1-based index)
	DefaultExam int64  // Exam used when the exam column is empty
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		ExamColumn:  "A",
		TypeColumn:  "B",
		TitleColumn: "C",
		SheetName:   "Sheet1",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// QuestionStore is where imported questions go.
type QuestionStore interface {
	FindByTitle(ctx context.Context, examID int64, title string) (*models.Question, error)
	Create(ctx context.Context, q *models.Question) error
}

// Importer loads question pools from spreadsheets.
type Importer struct {
	store QuestionStore
}

// NewImporter creates an importer writing to store.
func NewImporter(store QuestionStore) *Importer {
	return &Importer{store: store}
}

type columns struct {
	exam, kind, title int
}

// ImportQuestions imports questions from an Excel or CSV file. Questions
// whose exam already has one with the same title are skipped.
func (im *Importer) ImportQuestions(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	cols, err := resolveColumns(config)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if blank(row) {
			continue
		}
		result.TotalProcessed++

		err := im.processRow(ctx, row, cols, config.DefaultExam)
		switch {
		case errors.Is(err, errSkipRow):
			result.Skipped++
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		default:
			result.Created++
		}
	}
	return result, nil
}

func (im *Importer) processRow(ctx context.Context, row []string, cols columns, defaultExam int64) error {
	examID := defaultExam
	if raw := cell(row, cols.exam); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid exam id %q", raw)
		}
		examID = id
	}
	if examID <= 0 {
		return fmt.Errorf("exam id is missing")
	}

	kind := TypeSingleChoice
	if raw := cell(row, cols.kind); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < TypeSingleChoice || n > TypeTrueFalse {
			return fmt.Errorf("invalid question type %q", raw)
		}
		kind = n
	}

	title := cell(row, cols.title)
	if title == "" {
		return fmt.Errorf("question title is empty")
	}

	existing, err := im.store.FindByTitle(ctx, examID, title)
	if err != nil {
		return err
	}
	if existing != nil {
		return errSkipRow
	}
	return im.store.Create(ctx, &models.Question{ExamID: examID, QuestionType: kind, Title: title})
}

func resolveColumns(config ImportConfig) (columns, error) {
	var cols columns
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{config.ExamColumn, &cols.exam},
		{config.TypeColumn, &cols.kind},
		{config.TitleColumn, &cols.title},
	} {
		n, err := excelize.ColumnNameToNumber(c.name)
		if err != nil {
			return columns{}, fmt.Errorf("invalid column %q: %w", c.name, err)
		}
		*c.dst = n - 1
	}
	return cols, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
