// Package domain defines the entities of the gym club (members, chats,
// messages and bookable classes) together with the rows they are persisted
// as. Members map one-to-one onto the members table; chats and classes keep
// their list-valued attributes in encoded text columns (see package codec)
// and are therefore split into an entity and a *Record row type.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StartDateLayout is the fixed text layout of AvailableClass start dates.
const StartDateLayout = "2006-01-02 15:04"

var (
	// ErrEmptyEmail is returned when a member is constructed without an email.
	ErrEmptyEmail = errors.New("member email is empty")

	// ErrMalformedDate is returned when a class start date does not follow
	// StartDateLayout.
	ErrMalformedDate = errors.New("malformed start date")
)

// Member is a registered club member. Tutors run classes.
//
// Fields:
//   - ID: store-assigned integer primary key.
//   - Email: unique login identifier.
//   - Password: compared verbatim at login.
//   - IsTutor: persisted as 0/1.
//   - Profile: file name reference of the profile picture.
type Member struct {
	ID       int64  `json:"id"       gorm:"primaryKey;autoIncrement"`
	Forename string `json:"forename" gorm:"type:text;not null"`
	Surname  string `json:"surname"  gorm:"type:text;not null"`
	Email    string `json:"email"    gorm:"type:text;not null;uniqueIndex:ux_members_email"`
	Phone    string `json:"phone"    gorm:"type:text"`
	Password string `json:"-"        gorm:"type:text;not null"`
	IsTutor  bool   `json:"is_tutor" gorm:"column:is_tutor;not null;default:false"`
	Profile  string `json:"profile"  gorm:"type:text"`
}

// TableName returns the database table name for Member.
func (Member) TableName() string { return "members" }

// NewMember builds a Member, rejecting a blank email.
func NewMember(forename, surname, email, phone, password string) (*Member, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmptyEmail
	}
	return &Member{
		Forename: forename,
		Surname:  surname,
		Email:    email,
		Phone:    phone,
		Password: password,
	}, nil
}

// FullName joins forename and surname.
func (m Member) FullName() string {
	return strings.TrimSpace(m.Forename + " " + m.Surname)
}

// Message is one entry of a chat log. Author is resolved from AuthorID when
// the log is decoded and may be nil for messages built in memory.
type Message struct {
	AuthorID int64
	Author   *Member
	Text     string
}

// NewMessage returns a message authored by m.
func NewMessage(m Member, text string) Message {
	return Message{AuthorID: m.ID, Author: &m, Text: text}
}

// Chat is a two-party conversation.
//
// MemberIDs holds sender then receiver as written at creation time; lookups
// treat the pair as unordered. Revision is the optimistic concurrency token
// of the backing row.
type Chat struct {
	ID        int64
	MemberIDs []int64
	Messages  []Message
	Revision  int64
}

// Includes reports whether id takes part in the chat.
func (c Chat) Includes(id int64) bool {
	for _, m := range c.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant of a two-party chat, or false
// when id is not a participant.
func (c Chat) Counterpart(id int64) (int64, bool) {
	if !c.Includes(id) {
		return 0, false
	}
	for _, m := range c.MemberIDs {
		if m != id {
			return m, true
		}
	}
	// self chat
	return id, true
}

// LastMessage returns the most recent message, if any.
func (c Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// AvailableClass is a bookable session run by a tutor.
type AvailableClass struct {
	ID               int64
	TutorID          int64
	Title            string
	Description      string
	StartDate        time.Time
	AppliedMemberIDs []int64
	Revision         int64
}

// NewAvailableClass builds a class from its textual start date.
func NewAvailableClass(tutorID int64, title, description, startDate string) (*AvailableClass, error) {
	start, err := ParseStartDate(startDate)
	if err != nil {
		return nil, err
	}
	return &AvailableClass{
		TutorID:          tutorID,
		Title:            title,
		Description:      description,
		StartDate:        start,
		AppliedMemberIDs: []int64{},
	}, nil
}

// ParseStartDate parses s using StartDateLayout.
func ParseStartDate(s string) (time.Time, error) {
	t, err := time.Parse(StartDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}

// StartDateText formats StartDate back into StartDateLayout.
func (c AvailableClass) StartDateText() string {
	return c.StartDate.Format(StartDateLayout)
}

// HasMember reports whether id already applied for the class.
func (c AvailableClass) HasMember(id int64) bool {
	for _, m := range c.AppliedMemberIDs {
		if m == id {
			return true
		}
	}
	return false
}
