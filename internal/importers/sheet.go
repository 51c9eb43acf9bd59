package importers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetRow is one word read from a spreadsheet or CSV file.
type SheetRow struct {
	Rank               int
	Word               string
	Translation        string
	Pos                string
	Phonetic           string
	Example            string
	ExampleTranslation string
}

// sheetColumns maps accepted header names to row fields. Headers are
// matched case-insensitively.
var sheetColumns = map[string]string{
	"rank":                "rank",
	"word":                "word",
	"headword":            "word",
	"translation":         "translation",
	"meaning":             "translation",
	"pos":                 "pos",
	"phonetic":            "phonetic",
	"phone":               "phonetic",
	"example":             "example",
	"example translation": "example_translation",
	"example_translation": "example_translation",
}

// ParseSheetCSV reads words from a CSV file with a header row.
func ParseSheetCSV(r io.Reader) ([]SheetRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return parseSheetRows(rows)
}

// ParseSheetXLSX reads words from a workbook. An empty sheet name picks the
// first sheet.
func ParseSheetXLSX(r io.Reader, sheet string) ([]SheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return parseSheetRows(rows)
}

func parseSheetRows(rows [][]string) ([]SheetRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	headerIndex := make(map[string]int)
	for i, h := range rows[0] {
		if field, ok := sheetColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, seen := headerIndex[field]; !seen {
				headerIndex[field] = i
			}
		}
	}
	if _, ok := headerIndex["word"]; !ok {
		return nil, fmt.Errorf("missing required column: word")
	}

	var out []SheetRow
	for _, record := range rows[1:] {
		word := getCellValue(record, headerIndex, "word")
		if word == "" {
			continue
		}
		rank, _ := strconv.Atoi(getCellValue(record, headerIndex, "rank"))
		out = append(out, SheetRow{
			Rank:               rank,
			Word:               word,
			Translation:        getCellValue(record, headerIndex, "translation"),
			Pos:                getCellValue(record, headerIndex, "pos"),
			Phonetic:           getCellValue(record, headerIndex, "phonetic"),
			Example:            getCellValue(record, headerIndex, "example"),
			ExampleTranslation: getCellValue(record, headerIndex, "example_translation"),
		})
	}
	return out, nil
}

func getCellValue(record []string, headerIndex map[string]int, field string) string {
	idx, ok := headerIndex[field]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// SheetConverter converts spreadsheet rows to RawWords stored in the flat
// record layout.
type SheetConverter struct {
	rows   []SheetRow
	bookID string
	name   string
}

// NewSheetConverter builds a converter for rows of one book. name is the
// source name, "csv" or "xlsx".
func NewSheetConverter(rows []SheetRow, bookID, name string) *SheetConverter {
	return &SheetConverter{rows: rows, bookID: bookID, name: name}
}

func (c *SheetConverter) Convert() ([]RawWord, Source) {
	words := make([]RawWord, 0, len(c.rows))
	for _, r := range c.rows {
		content, err := json.Marshal(flatRecord(r))
		if err != nil {
			continue
		}
		words = append(words, RawWord{
			BookID:   c.bookID,
			Rank:     r.Rank,
			HeadWord: r.Word,
			Content:  content,
		})
	}
	return words, Source{Name: c.name}
}

func flatRecord(r SheetRow) map[string]any {
	record := map[string]any{
		"wordHead": r.Word,
		"trans":    []map[string]string{},
	}
	if r.Translation != "" {
		record["trans"] = []map[string]string{{"pos": r.Pos, "tranCn": r.Translation}}
	}
	if r.Phonetic != "" {
		record["usphone"] = r.Phonetic
	}
	if r.Example != "" {
		record["sentences"] = []map[string]string{{"sContent": r.Example, "sCn": r.ExampleTranslation}}
	}
	return record
}

var _ Converter = (*SheetConverter)(nil)
