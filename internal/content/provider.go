// Package content serves the read-only word catalog: books and the words of
// each book, normalized for display.
//
// A Provider is built once per process and shared. Word lists are fetched
// once per book and kept in a bounded LRU; concurrent first requests for the
// same book share one query.
package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/entities"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrWordNotFound = errors.New("word not found")
)

// Catalog is the storage behind a Provider.
type Catalog interface {
	ListBooks(ctx context.Context) ([]entities.Book, error)
	ListWords(ctx context.Context, bookID string, limit int) ([]entities.Word, error)
}

type Provider struct {
	catalog  Catalog
	maxWords int

	mu    sync.RWMutex
	books []entities.Book

	words *lru.Cache[string, []WordDetail]
	group singleflight.Group
}

// NewProvider creates a provider. cacheSize bounds the number of books whose
// word lists stay in memory; maxWords caps each list.
func NewProvider(catalog Catalog, cacheSize, maxWords int) (*Provider, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	if maxWords <= 0 {
		maxWords = config.DefaultMaxWordsPerBook
	}
	words, err := lru.New[string, []WordDetail](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create words cache: %w", err)
	}
	return &Provider{catalog: catalog, maxWords: maxWords, words: words}, nil
}

// ListBooks returns the catalog, most recently updated first.
func (p *Provider) ListBooks(ctx context.Context) ([]entities.Book, error) {
	p.mu.RLock()
	cached := p.books
	p.mu.RUnlock()
	if cached != nil {
		return append([]entities.Book(nil), cached...), nil
	}

	// The fetch is shared, so one caller going away must not fail the rest.
	shared := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do("books", func() (any, error) {
		books, err := p.catalog.ListBooks(shared)
		if err != nil {
			return nil, err
		}
		if books == nil {
			books = []entities.Book{}
		}
		p.mu.Lock()
		p.books = books
		p.mu.Unlock()
		return books, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return append([]entities.Book(nil), v.([]entities.Book)...), nil
}

// Book returns one book of the catalog.
func (p *Provider) Book(ctx context.Context, bookID string) (entities.Book, error) {
	books, err := p.ListBooks(ctx)
	if err != nil {
		return entities.Book{}, err
	}
	for _, b := range books {
		if b.BookID == bookID {
			return b, nil
		}
	}
	return entities.Book{}, ErrBookNotFound
}

// ListWords returns the words of a book in rank order. Records that cannot
// be shown are skipped. The returned slice must not be modified.
func (p *Provider) ListWords(ctx context.Context, bookID string) ([]WordDetail, error) {
	if words, ok := p.words.Get(bookID); ok {
		return words, nil
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do("words:"+bookID, func() (any, error) {
		if words, ok := p.words.Get(bookID); ok {
			return words, nil
		}

		rows, err := p.catalog.ListWords(shared, bookID, p.maxWords)
		if err != nil {
			return nil, err
		}

		words := make([]WordDetail, 0, len(rows))
		for _, row := range rows {
			detail, ok, err := ParseWord(row.Content, row.HeadWord, row.WordRank)
			if err != nil {
				log.Printf("Failed to parse word %d of %s: %v", row.WordRank, bookID, err)
				continue
			}
			if ok {
				words = append(words, detail)
			}
		}

		p.words.Add(bookID, words)
		return words, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list words of %s: %w", bookID, err)
	}
	return v.([]WordDetail), nil
}

// Word returns the word with the given rank.
func (p *Provider) Word(ctx context.Context, bookID string, rank int) (WordDetail, error) {
	words, err := p.ListWords(ctx, bookID)
	if err != nil {
		return WordDetail{}, err
	}
	for _, w := range words {
		if w.WordRank == rank {
			return w, nil
		}
	}
	return WordDetail{}, ErrWordNotFound
}

// Invalidate drops cached data after the catalog changed. An empty bookID
// only refreshes the book list.
func (p *Provider) Invalidate(bookID string) {
	p.mu.Lock()
	p.books = nil
	p.mu.Unlock()
	if bookID != "" {
		p.words.Remove(bookID)
	}
}
