package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"propertigo/pkg/errors"
)

// Role labels stored on rooms and messages. Informational only; room
// identity is derived from participant ids, never from roles.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAgent  = "agent"
)

// Read-status values. A missing key on the readStatus map is treated as
// StatusNew for every participant except the room's creator.
const (
	StatusNew  = "new"
	StatusRead = "read"
)

type Room struct {
	ID           string               `json:"id" firestore:"id"`
	Participants []string             `json:"participants" firestore:"participants"` // always exactly two, sorted
	BuyerID      string               `json:"buyer_id" firestore:"buyerId"`
	ReceiverID   string               `json:"receiver_id" firestore:"receiverId"`
	ReceiverRole string               `json:"receiver_role" firestore:"receiverRole"` // "agent" or "seller"
	PropertyID   string               `json:"property_id" firestore:"propertyId"`
	LastMessage  string               `json:"last_message,omitempty" firestore:"lastMessage"`
	ReadStatus   map[string]string    `json:"read_status" firestore:"readStatus"`
	LastReadAt   map[string]time.Time `json:"last_read_at,omitempty" firestore:"lastReadAt,omitempty"`
	CreatedAt    time.Time            `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time            `json:"updated_at" firestore:"updatedAt"`
}

// OtherParticipant returns the participant that is not userID, or "" when
// userID is not a member of the room.
func (r *Room) OtherParticipant(userID string) string {
	for _, p := range r.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether userID is one of the room's two members.
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// StatusFor resolves the effective read status for userID. A missing key
// means the entry was never written: unread for everyone except the buyer,
// who created the room and has read it by definition.
func (r *Room) StatusFor(userID string) string {
	if s, ok := r.ReadStatus[userID]; ok {
		return s
	}
	if userID == r.BuyerID {
		return StatusRead
	}
	return StatusNew
}

// ValidateIdentity rejects identifiers that must never reach the room id.
// These are caller bugs, not recoverable conditions.
func ValidateIdentity(id string) error {
	switch id {
	case "", "0", "null", "undefined":
		return errors.InvalidIdentity(fmt.Sprintf("invalid identifier %q", id))
	}
	return nil
}

// ComputeRoomID derives the canonical room id for two participants and a
// property. The pair is ordered by lexicographic string comparison, so the
// result is the same no matter which party initiates. Numeric ids must be
// formatted identically everywhere (no leading zeros) or the REST backend
// and this service will disagree on the id.
func ComputeRoomID(a, b, propertyID string) (string, error) {
	for _, id := range []string{a, b, propertyID} {
		if err := ValidateIdentity(id); err != nil {
			return "", err
		}
	}
	lo, hi := a, b
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return lo + "_" + hi + "_" + propertyID, nil
}

// ParseRoomID splits a canonical room id back into its two participants and
// the property id. Used by the message relay to rebuild a room document
// that went missing.
func ParseRoomID(roomID string) (participants []string, propertyID string, err error) {
	parts := strings.Split(roomID, "_")
	if len(parts) != 3 {
		return nil, "", errors.InvalidIdentity(fmt.Sprintf("malformed room id %q", roomID))
	}
	for _, p := range parts {
		if err := ValidateIdentity(p); err != nil {
			return nil, "", err
		}
	}
	participants = []string{parts[0], parts[1]}
	sort.Strings(participants)
	return participants, parts[2], nil
}
