package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"abbrev-quiz-service/internal/domain"
	"abbrev-quiz-service/internal/infra/memory"
	"github.com/xuri/excelize/v2"
)

// Config describes where each field lives in a spreadsheet or CSV file.
type Config struct {
	FilePath           string // .xlsx, .csv or .json
	SheetName          string // Excel only
	AbbreviationColumn string
	AnswerColumn       string
	OptionsColumn      string // distractors (and optionally the answer) joined by OptionSeparator
	CategoryColumn     string
	OptionSeparator    string
	StartRow           int // 1-based; rows before it are headers
}

// DefaultConfig returns the default column layout: A abbreviation, B answer, C options, D category.
func DefaultConfig() Config {
	return Config{
		SheetName:          "Sheet1",
		AbbreviationColumn: "A",
		AnswerColumn:       "B",
		OptionsColumn:      "C",
		CategoryColumn:     "D",
		OptionSeparator:    "|",
		StartRow:           2,
	}
}

// Result holds the parsed items and per-row problems.
type Result struct {
	TotalProcessed int
	Items          []domain.QuizItem
	Skipped        int
	Errors         []string
}

// Read parses the file named in cfg. Row-level problems are collected in
// Result.Errors; only unreadable files fail the whole read.
func Read(cfg Config) (*Result, error) {
	switch strings.ToLower(filepath.Ext(cfg.FilePath)) {
	case ".json":
		return readJSON(cfg)
	case ".csv":
		return readCSV(cfg)
	default:
		return readExcel(cfg)
	}
}

func readJSON(cfg Config) (*Result, error) {
	raw, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	items, err := memory.DecodeItems(raw)
	if err != nil {
		return nil, err
	}
	result := &Result{}
	seen := map[string]bool{}
	for i, item := range items {
		result.TotalProcessed++
		item, err := normalize(item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Item %d: %v", i+1, err))
			continue
		}
		result.add(item, seen)
	}
	return result, nil
}

func readExcel(cfg Config) (*Result, error) {
	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(cfg.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &Result{}
	seen := map[string]bool{}
	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		result.processRow(row, cfg, i+1, seen)
	}
	return result, nil
}

func readCSV(cfg Config) (*Result, error) {
	file, err := os.Open(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	result := &Result{}
	seen := map[string]bool{}
	rowNum := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < cfg.StartRow {
			continue
		}
		result.processRow(row, cfg, rowNum, seen)
	}
	return result, nil
}

func (r *Result) processRow(row []string, cfg Config, rowNum int, seen map[string]bool) {
	if isBlank(row) {
		return
	}
	r.TotalProcessed++

	item := domain.QuizItem{
		Abbreviation:  cell(row, cfg.AbbreviationColumn),
		CorrectAnswer: cell(row, cfg.AnswerColumn),
		Category:      cell(row, cfg.CategoryColumn),
	}
	sep := cfg.OptionSeparator
	if sep == "" {
		sep = "|"
	}
	if raw := cell(row, cfg.OptionsColumn); raw != "" {
		item.Options = strings.Split(raw, sep)
	}

	item, err := normalize(item)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		return
	}
	r.add(item, seen)
}

func (r *Result) add(item domain.QuizItem, seen map[string]bool) {
	key := item.Category + "\x00" + item.Abbreviation
	if seen[key] {
		r.Skipped++
		return
	}
	seen[key] = true
	r.Items = append(r.Items, item)
}

// normalize trims fields, drops empty or duplicate options and makes sure the
// correct answer is one of the options.
func normalize(item domain.QuizItem) (domain.QuizItem, error) {
	item.Abbreviation = strings.TrimSpace(item.Abbreviation)
	item.CorrectAnswer = strings.TrimSpace(item.CorrectAnswer)
	item.Category = strings.TrimSpace(item.Category)

	switch {
	case item.Abbreviation == "":
		return item, errors.New("missing abbreviation")
	case item.CorrectAnswer == "":
		return item, errors.New("missing correct answer")
	case item.Category == "":
		return item, errors.New("missing category")
	case item.Category == domain.AllCategories:
		return item, fmt.Errorf("category %q is reserved", domain.AllCategories)
	}

	options := make([]string, 0, len(item.Options)+1)
	hasAnswer := false
	dedup := map[string]bool{}
	for _, opt := range item.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" || dedup[opt] {
			continue
		}
		dedup[opt] = true
		if opt == item.CorrectAnswer {
			hasAnswer = true
		}
		options = append(options, opt)
	}
	if !hasAnswer {
		options = append(options, item.CorrectAnswer)
	}
	if len(options) < 2 {
		return item, errors.New("need at least one distractor")
	}
	item.Options = options
	return item, nil
}

func cell(row []string, column string) string {
	idx, err := excelize.ColumnNameToNumber(column)
	if err != nil || idx-1 >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx-1])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
