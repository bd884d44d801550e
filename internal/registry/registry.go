// Package registry maps a participant pair to a stable conversation
// identity. The id is a pure function of the pair, so resolving (A,B) and
// (B,A) always lands on the same conversation; actual record creation is
// deferred to the first send and serialized by the store's create-if-absent.
package registry

import (
	"fmt"

	"github.com/courierhq/courier/internal/identity"
	"github.com/courierhq/courier/internal/store"
)

// State of a conversation handle.
type State string

const (
	// StateNew means no conversation record exists yet for the pair;
	// the first send will create it.
	StateNew State = "new"
	// StateActive means the record exists and sends append to it.
	StateActive State = "active"
)

// Handle is the resolved identity of a conversation between two users.
type Handle struct {
	ConversationID string
	PairKey        string
	SelfEmail      string // safe form
	OtherEmail     string // safe form
	State          State
}

// PairKey derives the unordered pair key from two safe emails.
func PairKey(safeA, safeB string) string {
	if safeB < safeA {
		safeA, safeB = safeB, safeA
	}
	return safeA + "_" + safeB
}

// ConversationID derives the deterministic conversation id for a pair key.
func ConversationID(pairKey string) string {
	return "conversation_" + pairKey
}

// Registry resolves conversation handles against the store.
type Registry struct {
	db *store.DB
}

// New creates a registry backed by db.
func New(db *store.DB) *Registry {
	return &Registry{db: db}
}

// Resolve returns the handle for the conversation between the current user
// and the other user, looking up whether a record already exists. Neither
// input may be empty; both are normalized here.
func (r *Registry) Resolve(currentEmail, otherEmail string) (*Handle, error) {
	if currentEmail == "" || otherEmail == "" {
		return nil, fmt.Errorf("registry: both participant emails are required")
	}
	self := identity.SafeEmail(currentEmail)
	other := identity.SafeEmail(otherEmail)

	pairKey := PairKey(self, other)
	h := &Handle{
		ConversationID: ConversationID(pairKey),
		PairKey:        pairKey,
		SelfEmail:      self,
		OtherEmail:     other,
		State:          StateNew,
	}

	existing, err := r.db.GetConversation(h.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("registry: lookup conversation: %w", err)
	}
	if existing != nil {
		h.State = StateActive
	}
	return h, nil
}

// EnsureConversation creates the conversation record for the handle if it
// does not exist yet and transitions the handle to Active. Safe under
// concurrent first sends from both participants.
func (r *Registry) EnsureConversation(h *Handle, otherDisplayName string) error {
	if h.State == StateActive {
		return nil
	}
	a, b := h.SelfEmail, h.OtherEmail
	if b < a {
		a, b = b, a
	}
	_, err := r.db.CreateConversationIfAbsent(&store.Conversation{
		ID:           h.ConversationID,
		PairKey:      h.PairKey,
		ParticipantA: a,
		ParticipantB: b,
		Name:         otherDisplayName,
	})
	if err != nil {
		return fmt.Errorf("registry: create conversation: %w", err)
	}
	h.State = StateActive
	return nil
}
