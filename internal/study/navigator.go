// Package study walks a learner through the words of one book and reports
// each position change to the session that tracks their progress.
package study

import (
	"errors"
	"time"

	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/progress"
)

var ErrEmptyBook = errors.New("book has no words")

// Tracker records progress for the current user. session.Manager implements it.
type Tracker interface {
	Authenticated() bool
	UpdateProgress(bookID string, updater progress.Updater) (progress.BookProgress, error)
}

// Navigator holds the position within one book. It is not safe for
// concurrent use; each client drives its own navigator.
type Navigator struct {
	bookID  string
	words   []content.WordDetail
	tracker Tracker
	now     func() time.Time

	index   int
	started bool
	saved   *progress.BookProgress
}

func NewNavigator(bookID string, words []content.WordDetail, tracker Tracker) *Navigator {
	return &Navigator{
		bookID:  bookID,
		words:   words,
		tracker: tracker,
		now:     time.Now,
	}
}

// StartIndex is the position a book resumes at given its saved entry.
func StartIndex(saved *progress.BookProgress, total int) int {
	if saved == nil || total == 0 {
		return 0
	}
	return clamp(saved.LastIndex, total)
}

// Start positions the navigator from the saved entry, nil for a fresh
// book, and records the position when someone is logged in.
func (n *Navigator) Start(saved *progress.BookProgress) error {
	if len(n.words) == 0 {
		return ErrEmptyBook
	}
	n.index = StartIndex(saved, len(n.words))
	n.started = true
	return n.persist()
}

// Restore positions the navigator like Start without recording anything.
// Clients that keep no navigator between requests use it to pick up where
// the saved entry left off.
func (n *Navigator) Restore(saved *progress.BookProgress) error {
	if len(n.words) == 0 {
		return ErrEmptyBook
	}
	n.index = StartIndex(saved, len(n.words))
	n.started = true
	if saved != nil {
		entry := saved.Copy()
		n.saved = &entry
	}
	return nil
}

func (n *Navigator) Next() error {
	return n.GoTo(n.index + 1)
}

func (n *Navigator) Prev() error {
	return n.GoTo(n.index - 1)
}

// GoTo moves to index, clamped to the book. Progress is recorded only when
// the position actually changes and the tracker is authenticated.
func (n *Navigator) GoTo(index int) error {
	if len(n.words) == 0 {
		return ErrEmptyBook
	}
	index = clamp(index, len(n.words))
	if n.started && index == n.index {
		return nil
	}
	n.index = index
	n.started = true
	return n.persist()
}

func (n *Navigator) persist() error {
	if n.tracker == nil || !n.tracker.Authenticated() {
		return nil
	}
	entry, err := n.tracker.UpdateProgress(n.bookID, progress.AdvanceTo(n.index, len(n.words), n.now()))
	if err != nil {
		return err
	}
	n.saved = &entry
	return nil
}

func (n *Navigator) BookID() string {
	return n.bookID
}

func (n *Navigator) Index() int {
	return n.index
}

func (n *Navigator) Total() int {
	return len(n.words)
}

func (n *Navigator) AtStart() bool {
	return n.index == 0
}

func (n *Navigator) AtEnd() bool {
	return n.index >= len(n.words)-1
}

// Current returns the word at the current position.
func (n *Navigator) Current() (content.WordDetail, bool) {
	if len(n.words) == 0 {
		return content.WordDetail{}, false
	}
	return n.words[n.index], true
}

// Detail looks a word of the book up by rank.
func (n *Navigator) Detail(rank int) (content.WordDetail, bool) {
	for _, w := range n.words {
		if w.WordRank == rank {
			return w, true
		}
	}
	return content.WordDetail{}, false
}

// Saved returns the entry written by the last recorded move.
func (n *Navigator) Saved() (progress.BookProgress, bool) {
	if n.saved == nil {
		return progress.BookProgress{}, false
	}
	return *n.saved, true
}

func clamp(index, total int) int {
	if index < 0 {
		return 0
	}
	if index > total-1 {
		return total - 1
	}
	return index
}
