package store

// LatestMessage is the denormalized snapshot kept on a conversation record.
type LatestMessage struct {
	SentAt  int64
	Preview string
	IsRead  bool
}

// Conversation is a durable two-participant message log. ParticipantA and
// ParticipantB hold the sorted safe emails; PairKey is their join and is
// unique, which is what closes the concurrent-first-send race.
type Conversation struct {
	ID           string
	PairKey      string
	ParticipantA string
	ParticipantB string
	Name         string
	Latest       LatestMessage
	CreatedAt    int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	ConversationID string
	MessageID      string
	Snippet        string
	SentAt         int64
}
