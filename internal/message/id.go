package message

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// idTimeLayout is sortable, UTC-only and second-granular. Locale-dependent
// formats would break the lexical ordering of ids across clients.
const idTimeLayout = "20060102T150405Z"

// NewID produces a message identifier from the participant pair and the
// clock. The random suffix keeps ids from two processes sending within the
// same second from colliding. No side effects.
func NewID(otherEmail, currentSafeEmail string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		otherEmail,
		currentSafeEmail,
		now.UTC().Format(idTimeLayout),
		uuid.NewString()[:8],
	)
}
