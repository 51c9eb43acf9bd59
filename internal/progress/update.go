package progress

import "time"

// Updater builds the next entry for a book from the current one (nil when absent).
type Updater func(prev *BookProgress) BookProgress

// UpdateProgress applies updater to the entry for bookID and returns the new
// entry together with a new map. The input map is left untouched.
func UpdateProgress(m Map, bookID string, updater Updater) (BookProgress, Map) {
	var prev *BookProgress
	if existing, ok := m[bookID]; ok {
		c := existing.clone()
		prev = &c
	}

	entry := updater(prev)
	entry.BookID = bookID

	next := Clone(m)
	next[bookID] = entry.clone()
	return entry, next
}

// AdvanceTo is the updater used when the studied index changes.
// The last index follows the new position exactly, in either direction.
// The learned count never goes down. The timestamp always moves to now.
// A positive wordsCount refreshes the book size snapshot.
func AdvanceTo(index, wordsCount int, now time.Time) Updater {
	if index < 0 {
		index = 0
	}
	return func(prev *BookProgress) BookProgress {
		learned := index + 1
		var snapshot *int

		if prev != nil {
			if prevLearned := prev.EffectiveLearned(); prevLearned > learned {
				learned = prevLearned
			}
			if prev.WordsCount != nil {
				snapshot = Int(*prev.WordsCount)
			}
		}
		if wordsCount > 0 {
			snapshot = Int(wordsCount)
		}

		return BookProgress{
			LastIndex:    index,
			LearnedWords: Int(learned),
			UpdatedAt:    FormatTime(now),
			WordsCount:   snapshot,
		}
	}
}
