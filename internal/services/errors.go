// Package services defines the business logic for members, chats and class
// enrollment. This file centralizes service-level error values so that they
// can be returned consistently by service methods and checked by callers.
//
// Translation into user-facing labels is performed by the CLI.
package services

import "errors"

// Member-related errors.
var (
	// ErrMemberNotFound indicates that no member has the given id or email.
	ErrMemberNotFound = errors.New("member not found")

	// ErrMissingField is returned when a registration field is blank.
	ErrMissingField = errors.New("required field is empty")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when a login password does not match.
	ErrInvalidCredentials = errors.New("invalid password")
)

// Chat-related errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrSelfChat is returned when a member tries to start a chat with
	// themselves.
	ErrSelfChat = errors.New("cannot chat with yourself")

	// ErrAlreadyChatting is returned when the pair already has a chat.
	ErrAlreadyChatting = errors.New("chat already exists")

	// ErrNotParticipant is returned when a member posts to a chat they are
	// not part of.
	ErrNotParticipant = errors.New("not a participant of this chat")

	// ErrEmptyMessage is returned for a blank message text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a message exceeds the configured
	// rune limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrRateLimited is returned when a member sends messages faster than
	// the configured rate.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Class-related errors.
var (
	// ErrClassNotFound indicates that the requested class does not exist.
	ErrClassNotFound = errors.New("class not found")

	// ErrAlreadyEnrolled is returned when a member applies for a class they
	// are already in.
	ErrAlreadyEnrolled = errors.New("already enrolled in class")
)
