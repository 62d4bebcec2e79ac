package domain

import "time"

// NewsItem is a single raw news message inside one ingestion window. Items
// exist only for the duration of the run that fetched them.
type NewsItem struct {
	SourceTimestamp time.Time
	Text            string
}

// Summary is one persisted daily digest record. Records are append-only and
// never updated or deleted.
type Summary struct {
	CreatedAt time.Time
	Text      string
}
