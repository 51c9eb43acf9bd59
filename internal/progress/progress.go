// Package progress holds the per-book study progress model and the pure
// operations over it: reconciling two sources, ordering by recency, folding
// the summary and applying monotonic updates.
//
// Nothing in this package fails. Malformed timestamps compare as the Unix
// epoch and nil maps behave as empty maps.
package progress

import "time"

// BookProgress is one user's position in one book.
type BookProgress struct {
	BookID       string `json:"bookId"`
	LastIndex    int    `json:"lastIndex"`
	LearnedWords *int   `json:"learnedWords,omitempty"`
	UpdatedAt    string `json:"updatedAt"`
	WordsCount   *int   `json:"wordsCount,omitempty"`
}

// Map is keyed by book ID. Storage is unordered, use SortByRecency for views.
type Map map[string]BookProgress

// Summary is derived from a Map and never stored on its own.
type Summary struct {
	LearnedBooks int `json:"learnedBooks"`
	LearnedWords int `json:"learnedWords"`
}

// Int returns a pointer to v, for populating optional fields.
func Int(v int) *int {
	return &v
}

// Learned returns LearnedWords with absent treated as zero.
func (p BookProgress) Learned() int {
	if p.LearnedWords == nil {
		return 0
	}
	return *p.LearnedWords
}

// EffectiveLearned is LearnedWords, or LastIndex+1 when the count was never recorded.
func (p BookProgress) EffectiveLearned() int {
	if p.LearnedWords != nil {
		return *p.LearnedWords
	}
	return p.LastIndex + 1
}

// Time parses UpdatedAt, see ParseTime.
func (p BookProgress) Time() time.Time {
	return ParseTime(p.UpdatedAt)
}

// Copy returns p with its optional fields detached from the original.
func (p BookProgress) Copy() BookProgress {
	return p.clone()
}

func (p BookProgress) clone() BookProgress {
	out := p
	if p.LearnedWords != nil {
		out.LearnedWords = Int(*p.LearnedWords)
	}
	if p.WordsCount != nil {
		out.WordsCount = Int(*p.WordsCount)
	}
	return out
}

// Clone returns a deep copy. The result is never nil.
func Clone(m Map) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

// RecomputeSummary folds the map. It is called after every mutation
// instead of patching counters incrementally.
func RecomputeSummary(m Map) Summary {
	s := Summary{LearnedBooks: len(m)}
	for _, entry := range m {
		s.LearnedWords += entry.Learned()
	}
	return s
}
