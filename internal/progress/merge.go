package progress

// Merge reconciles server progress with device-local progress.
//
// A local entry replaces the server entry for the same book only when it is
// strictly newer, or equally new with a higher effective learned count.
// When local wins, fields the local entry leaves unset keep their server
// values. Books known to only one side are carried over as they are.
// Neither input is modified.
func Merge(server, local Map) Map {
	merged := Clone(server)

	for bookID, localEntry := range local {
		serverEntry, ok := merged[bookID]
		if !ok {
			merged[bookID] = localEntry.clone()
			continue
		}
		if localWins(serverEntry, localEntry) {
			merged[bookID] = overlay(serverEntry, localEntry)
		}
	}

	return merged
}

func localWins(server, local BookProgress) bool {
	serverTime := server.Time()
	localTime := local.Time()

	switch {
	case localTime.After(serverTime):
		return true
	case localTime.Equal(serverTime):
		return local.EffectiveLearned() > server.EffectiveLearned()
	default:
		return false
	}
}

// overlay applies the fields local carries on top of base.
func overlay(base, local BookProgress) BookProgress {
	out := base.clone()
	if local.BookID != "" {
		out.BookID = local.BookID
	}
	out.LastIndex = local.LastIndex
	if local.UpdatedAt != "" {
		out.UpdatedAt = local.UpdatedAt
	}
	if local.LearnedWords != nil {
		out.LearnedWords = Int(*local.LearnedWords)
	}
	if local.WordsCount != nil {
		out.WordsCount = Int(*local.WordsCount)
	}
	return out
}
