package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys for membership and account events.
const (
	UserRegistered       = "user.registered"
	VerificationResent   = "user.verification_resent"
	PasswordResetCode    = "user.password_reset_code"
	GroupCreated         = "group.created"
	GroupJoined          = "group.joined"
	GroupLeft            = "group.left"
	GroupDeleted         = "group.deleted"
	GroupEdited          = "group.edited"
	MemberKicked         = "group.member_kicked"
)

// Envelope wraps every published event with an id and timestamp.
type Envelope struct {
	EventID    string          `json:"eventId"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// AccountEvent carries enough for the mail consumer to address the user.
type AccountEvent struct {
	UserID           uint   `json:"userId"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	VerificationCode string `json:"verificationCode,omitempty"`
}

// MembershipEvent describes a change to a group's membership.
type MembershipEvent struct {
	GroupID uint `json:"groupId"`
	UserID  uint `json:"userId,omitempty"`
	OwnerID uint `json:"ownerId,omitempty"`
}

// Marshal builds an envelope around payload and serializes it.
func Marshal(kind string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		EventID:    uuid.New().String(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	})
}
