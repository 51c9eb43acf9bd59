package importers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"gorm.io/datatypes"

	"github.com/mrlokans/learncard/internal/entities"
)

// RawWord is a word from any import source. Content is the record stored
// for display; it must be a JSON object.
type RawWord struct {
	BookID   string
	Rank     int
	HeadWord string
	Content  json.RawMessage
}

// Source describes where a batch of words came from.
type Source struct {
	Name     string
	FilePath string
}

// Converter transforms source data into RawWords.
type Converter interface {
	Convert() ([]RawWord, Source)
}

// BookMeta describes the book being imported. BookID, when set, overrides
// the book ids found in the source.
type BookMeta struct {
	BookID      string
	Title       string
	Description string
	CoverURL    string
	Tags        []string
}

// BookStore persists books. books.Repository implements it.
type BookStore interface {
	SaveBook(book *entities.Book) error
	ReplaceWords(bookID string, words []entities.Word) (int, error)
}

// Invalidator drops cached catalog data. content.Provider implements it.
type Invalidator interface {
	Invalidate(bookID string)
}

// Result summarises the import of one book.
type Result struct {
	BookID  string `json:"bookId"`
	Words   int    `json:"words"`
	Skipped int    `json:"skipped"`
}

// Pipeline handles the common import workflow:
// convert → group by book → rank → deduplicate → save.
type Pipeline struct {
	store BookStore
	cache Invalidator
}

// NewPipeline creates a pipeline. cache may be nil.
func NewPipeline(store BookStore, cache Invalidator) *Pipeline {
	return &Pipeline{store: store, cache: cache}
}

// Import saves every book found in the converter's output. Results are in
// book id order.
func (p *Pipeline) Import(ctx context.Context, converter Converter, meta BookMeta) ([]Result, error) {
	words, source := converter.Convert()
	if len(words) == 0 {
		return nil, nil
	}

	groups := groupWordsByBook(words, meta.BookID)
	if _, ok := groups[""]; ok {
		return nil, fmt.Errorf("%s: words without a book id, pass one explicitly", source.Name)
	}

	bookIDs := make([]string, 0, len(groups))
	for id := range groups {
		bookIDs = append(bookIDs, id)
	}
	sort.Strings(bookIDs)

	results := make([]Result, 0, len(bookIDs))
	for _, bookID := range bookIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		rows, skipped := rankWords(groups[bookID])
		book := bookFor(bookID, meta)
		if err := p.store.SaveBook(book); err != nil {
			return results, fmt.Errorf("failed to save book %s: %w", bookID, err)
		}
		stored, err := p.store.ReplaceWords(bookID, rows)
		if err != nil {
			return results, fmt.Errorf("failed to save words of %s: %w", bookID, err)
		}
		if p.cache != nil {
			p.cache.Invalidate(bookID)
		}

		log.Printf("Imported %d words into %s from %s (%d skipped)", stored, bookID, source.Name, skipped)
		results = append(results, Result{BookID: bookID, Words: stored, Skipped: skipped})
	}
	return results, nil
}

func groupWordsByBook(words []RawWord, override string) map[string][]RawWord {
	groups := make(map[string][]RawWord)
	for _, w := range words {
		bookID := strings.TrimSpace(w.BookID)
		if override != "" {
			bookID = override
		}
		groups[bookID] = append(groups[bookID], w)
	}
	return groups
}

// rankWords turns raw words into rows. Words without a rank follow the
// highest rank seen so far; a repeated rank keeps the first word.
func rankWords(words []RawWord) ([]entities.Word, int) {
	next := 1
	for _, w := range words {
		if w.Rank >= next {
			next = w.Rank + 1
		}
	}

	seen := make(map[int]bool, len(words))
	rows := make([]entities.Word, 0, len(words))
	skipped := 0
	for _, w := range words {
		if len(w.Content) == 0 || !json.Valid(w.Content) {
			skipped++
			continue
		}
		rank := w.Rank
		if rank <= 0 {
			rank = next
			next++
		}
		if seen[rank] {
			skipped++
			continue
		}
		seen[rank] = true
		rows = append(rows, entities.Word{
			WordRank: rank,
			HeadWord: strings.TrimSpace(w.HeadWord),
			Content:  datatypes.JSON(w.Content),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].WordRank < rows[j].WordRank })
	return rows, skipped
}

func bookFor(bookID string, meta BookMeta) *entities.Book {
	book := &entities.Book{BookID: bookID, Title: bookID}
	if meta.Title != "" {
		book.Title = meta.Title
	}
	if meta.Description != "" {
		book.Description = &meta.Description
	}
	if meta.CoverURL != "" {
		book.CoverURL = &meta.CoverURL
	}
	if len(meta.Tags) > 0 {
		book.Tags = datatypes.JSONSlice[string](meta.Tags)
	}
	return book
}
