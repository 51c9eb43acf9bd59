// Package interfaces lists the seams between packages and checks at compile
// time that every implementation still satisfies them.
//
// # Interface Categories
//
// ## Storage
//
//   - content.Catalog: books and raw word records (internal/database/books)
//   - localstore.Backend, localstore.KeyLister: raw per-key payloads of the
//     client progress store (gorm table or a directory of JSON files)
//   - session.ServerProgressSource, tasks.ProgressSaver: the server progress
//     table (internal/database/userprogress)
//   - events.Store: the study event log (internal/database/events)
//
// ## Session Collaborators
//
//   - session.Authenticator: credential checks and registration (internal/auth)
//   - session.Syncer: receives a session's map when it ends (internal/tasks)
//   - session.ActivityRecorder: logins, logouts and merges (internal/events)
//   - study.Tracker, tui.Account: what the study clients need from a session
//
// # Adding a New Word Book Format
//
//  1. Parse the file into rows in internal/importers/ and wrap them in a
//     converter that emits one RawWord per word, with the record as JSON:
//
//     type AnkiConverter struct {
//         notes  []AnkiNote
//         bookID string
//     }
//
//     func (c *AnkiConverter) Convert() ([]importers.RawWord, importers.Source)
//
//     var _ importers.Converter = (*AnkiConverter)(nil)
//
//  2. Map the file extension to it in internal/cli/import_book.go.
//
// If the records have a layout content.ParseWord does not know yet, add a
// Schema and its translation function in internal/content/word.go.
//
// # Adding a New Progress Backend
//
// Implement localstore.Backend (and KeyLister if the push sweep should see its
// users). Each call must be atomic for its key; the store adds no locking.
//
//	var _ localstore.Backend = (*RedisBackend)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
