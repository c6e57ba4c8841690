package approval

import (
	"errors"
	"time"
)

// State is a tracker's position in the approval lifecycle.
type State string

const (
	StateAwaiting State = "awaiting_decision"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateRejected || s == StateExpired
}

// Marker is an approve/reject affordance attached to a message.
type Marker string

const (
	MarkerApprove Marker = "approve"
	MarkerReject  Marker = "reject"
)

// Decision returns the state a marker leads to.
func (m Marker) Decision() (State, bool) {
	switch m {
	case MarkerApprove:
		return StateApproved, true
	case MarkerReject:
		return StateRejected, true
	default:
		return "", false
	}
}

// ParseMarker accepts approve/reject and their common synonyms.
func ParseMarker(value string) (Marker, bool) {
	switch value {
	case "approve", "approved", "yes":
		return MarkerApprove, true
	case "reject", "rejected", "no":
		return MarkerReject, true
	default:
		return "", false
	}
}

// Pending maps a published message to the draft and audio it announced.
type Pending struct {
	MessageID   string    `json:"message_id"`
	ChannelID   string    `json:"channel_id"`
	DraftPath   string    `json:"draft_path"`
	AudioPath   string    `json:"audio_path"`
	Title       string    `json:"title,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Reaction is a marker placed on a message. At is the event time, which may
// differ from when the reaction was delivered.
type Reaction struct {
	MessageID string
	UserID    string
	Marker    Marker
	At        time.Time
}

// Tracker is a snapshot of one approval state machine.
type Tracker struct {
	Pending
	State     State     `json:"state"`
	DecidedAt time.Time `json:"decided_at,omitempty"`
	DecidedBy string    `json:"decided_by,omitempty"`
	// Offers counts reactions held in the settle window.
	Offers int `json:"offers,omitempty"`
}

// OfferResult says what an offered reaction did.
type OfferResult string

const (
	OfferIgnored OfferResult = "ignored"
	OfferHeld    OfferResult = "held"
	OfferDecided OfferResult = "decided"
)

var (
	ErrDuplicateDraft   = errors.New("draft already has a pending approval")
	ErrDuplicateMessage = errors.New("message already tracked")
	ErrUnknownMessage   = errors.New("message not tracked")
	ErrInvalidPending   = errors.New("pending approval requires message id and draft path")
)
