package entity

import "time"

// Visibility values shared by profiles and photos.
const (
	VisibilityPublic      = "public"
	VisibilityMatchesOnly = "matches_only"
	VisibilityPrivate     = "private"
)

// Interest statuses.
const (
	InterestPending  = "pending"
	InterestAccepted = "accepted"
	InterestDeclined = "declined"
)

// MemberProfile is the matrimonial profile of a user.
type MemberProfile struct {
	ID          string
	UserID      string
	DisplayName string
	Visibility  string
	City        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfilePhoto is a row pointing at an object in the photo bucket.
type ProfilePhoto struct {
	ID         string
	OwnerID    string
	ObjectPath string
	Visibility string
	CreatedAt  time.Time
}

// Interest is a request from one member to another. Accepted interests
// unlock messaging between the pair.
type Interest struct {
	ID          string
	SenderID    string
	RecipientID string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Involves reports whether userID is either side of the interest.
func (i Interest) Involves(userID string) bool {
	return i.SenderID == userID || i.RecipientID == userID
}

// Counterpart returns the other side of the interest relative to userID.
func (i Interest) Counterpart(userID string) string {
	if i.SenderID == userID {
		return i.RecipientID
	}
	return i.SenderID
}

type Message struct {
	ID          string
	ThreadID    string
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
}

// Involves reports whether userID sent or received the message.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.RecipientID == userID
}

// Counterpart returns the other participant relative to userID.
func (m Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

type BlockedUser struct {
	ID        string
	BlockerID string
	BlockedID string
	CreatedAt time.Time
}
