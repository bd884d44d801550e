package bus

import "time"

// Event kinds published by the core.
const (
	KindMessageAppended  = "message.appended"
	KindConversationRead = "conversation.read"
	KindUploadResolved   = "upload.resolved"
	KindUploadFailed     = "upload.failed"
)

// Event is a domain event published on the bus. ConversationID is set for
// message and conversation events and empty otherwise.
type Event struct {
	Kind           string
	ConversationID string
	Timestamp      time.Time
	Payload        any
}
