package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/database/books"
	dbevents "github.com/mrlokans/learncard/internal/database/events"
	"github.com/mrlokans/learncard/internal/database/localprogress"
	"github.com/mrlokans/learncard/internal/database/userprogress"
	"github.com/mrlokans/learncard/internal/events"
	"github.com/mrlokans/learncard/internal/importers"
	"github.com/mrlokans/learncard/internal/localstore"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/study"
	"github.com/mrlokans/learncard/internal/tasks"
	"github.com/mrlokans/learncard/internal/tui"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Catalog implementations
var _ content.Catalog = (*books.Repository)(nil)

// Local progress backends
var _ localstore.Backend = (*localprogress.Repository)(nil)
var _ localstore.KeyLister = (*localprogress.Repository)(nil)
var _ localstore.Backend = (*localstore.FileBackend)(nil)
var _ localstore.KeyLister = (*localstore.FileBackend)(nil)

// Server progress
var _ session.ServerProgressSource = (*userprogress.Repository)(nil)
var _ tasks.ProgressSaver = (*userprogress.Repository)(nil)

// Event storage
var _ events.Store = (*dbevents.Repository)(nil)

// =============================================================================
// Session Collaborators
// =============================================================================

var _ session.Authenticator = (*auth.Authenticator)(nil)
var _ session.Syncer = (*tasks.ProgressSyncer)(nil)
var _ session.ActivityRecorder = (*events.Service)(nil)

// Clients of a session
var _ study.Tracker = (*session.Manager)(nil)
var _ tui.Account = (*session.Manager)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.SyncLogger = (*events.Service)(nil)
var _ tasks.EventCleaner = (*events.Service)(nil)

// =============================================================================
// Import Pipeline
// =============================================================================

// Converter implementations
var _ importers.Converter = (*importers.DumpConverter)(nil)
var _ importers.Converter = (*importers.SheetConverter)(nil)

// Stores
var _ importers.BookStore = (*books.Repository)(nil)
var _ importers.Invalidator = (*content.Provider)(nil)
