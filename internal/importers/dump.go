package importers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// maxDumpLine bounds a single dump record. Nested records with many
// sentences run to tens of kilobytes.
const maxDumpLine = 4 * 1024 * 1024

// DumpRecord is one line of a dictionary dump.
type DumpRecord struct {
	WordRank int             `json:"wordRank"`
	HeadWord string          `json:"headWord"`
	Content  json.RawMessage `json:"content"`
	BookID   string          `json:"bookId"`
}

// ParseDump reads a JSON-lines dump. Lines that fail to decode are skipped
// and reported in problems, one message per line. The error is only set
// when the reader itself fails.
func ParseDump(r io.Reader) ([]DumpRecord, []string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxDumpLine)

	var (
		records  []DumpRecord
		problems []string
		line     int
	)
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var rec DumpRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			problems = append(problems, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(rec.Content) == 0 || string(rec.Content) == "null" {
			problems = append(problems, fmt.Sprintf("line %d: no content", line))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, problems, fmt.Errorf("failed to read dump: %w", err)
	}
	return records, problems, nil
}

// DumpConverter converts dump records to RawWords.
type DumpConverter struct {
	records []DumpRecord
	path    string
}

func NewDumpConverter(records []DumpRecord) *DumpConverter {
	return &DumpConverter{records: records}
}

// WithPath records the file the dump came from.
func (c *DumpConverter) WithPath(path string) *DumpConverter {
	c.path = path
	return c
}

func (c *DumpConverter) Convert() ([]RawWord, Source) {
	words := make([]RawWord, 0, len(c.records))
	for _, r := range c.records {
		words = append(words, RawWord{
			BookID:   r.BookID,
			Rank:     r.WordRank,
			HeadWord: r.HeadWord,
			Content:  r.Content,
		})
	}
	return words, Source{Name: "dump", FilePath: c.path}
}

var _ Converter = (*DumpConverter)(nil)
