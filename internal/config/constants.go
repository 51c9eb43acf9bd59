package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./learncard.db"

	// DefaultProgressKeyPrefix namespaces local progress records per user
	DefaultProgressKeyPrefix = "learn-card-progress:"

	// DefaultMaxWordsPerBook caps how many words a single book listing returns
	DefaultMaxWordsPerBook = 500
)
