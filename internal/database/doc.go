// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres), migrations
//	├── books/           # Word book catalog and words
//	├── users/           # User accounts and login bookkeeping
//	├── userprogress/    # Server copy of per-user book progress
//	├── localprogress/   # Key-value rows behind the hosted local progress store
//	└── events/          # Study activity log
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./learncard.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	progressRepo := userprogress.NewRepository(db.DB)
//
//	words, err := booksRepo.ListWords(ctx, "cet4", 500)
//	m, err := progressRepo.GetUserProgress(ctx, userID)
//
// # Interface Implementations
//
//   - books.Repository: implements content.Catalog
//   - userprogress.Repository: implements session.ServerProgressSource
//   - localprogress.Repository: implements localstore.Backend
//   - events.Repository: implements events.Store
package database
