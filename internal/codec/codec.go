// Package codec encodes the list-valued attributes of chats and classes into
// the single text columns they are persisted in, and decodes them back.
//
// Two shapes are supported:
//
//   - id lists, written as a bracketed, comma-and-space separated literal
//     such as "[113, 114]" ("[]" when empty). The membership package derives
//     its LIKE patterns from this exact layout.
//   - message logs, written as a canonical JSON array of
//     {"user_id": <int>, "text": <string>} objects ("[]" when empty).
//
// Decoding never produces a spurious element for an empty encoding.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/gymclub/internal/domain"
)

var (
	// ErrMalformedList is returned when an id list is missing its brackets,
	// its separators or holds a non-integer element.
	ErrMalformedList = errors.New("malformed id list")

	// ErrMalformedLog is returned when a message log is not a JSON array of
	// well-formed entries or references an author that cannot be resolved.
	ErrMalformedLog = errors.New("malformed message log")
)

const idSeparator = ", "

// EncodeIDList renders ids as "[a, b, c]".
func EncodeIDList(ids []int64) string {
	var b strings.Builder
	b.Grow(2 + len(ids)*6)
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteString(idSeparator)
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte(']')
	return b.String()
}

// DecodeIDList parses the output of EncodeIDList. Whitespace around elements
// is tolerated; empty elements are not.
func DecodeIDList(text string) ([]int64, error) {
	s := strings.TrimSpace(text)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: missing brackets in %q", ErrMalformedList, text)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []int64{}, nil
	}
	parts := strings.Split(inner, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w: empty element in %q", ErrMalformedList, text)
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: element %q in %q", ErrMalformedList, p, text)
		}
		out = append(out, id)
	}
	return out, nil
}

// AuthorResolver maps a persisted author id to its member. It returns
// (nil, nil) when no such member exists; a non-nil error signals a store
// failure and aborts decoding unchanged.
type AuthorResolver func(id int64) (*domain.Member, error)

// logEntry is the on-disk element of a message log.
type logEntry struct {
	UserID *int64  `json:"user_id"`
	Text   *string `json:"text"`
}

// EncodeMessageLog renders messages as a JSON array in order.
func EncodeMessageLog(messages []domain.Message) (string, error) {
	entries := make([]logEntry, len(messages))
	for i := range messages {
		id, text := messages[i].AuthorID, messages[i].Text
		entries[i] = logEntry{UserID: &id, Text: &text}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeMessageLog parses a log written by EncodeMessageLog, resolving each
// author through resolve. Authors are looked up once per distinct id.
func DecodeMessageLog(text string, resolve AuthorResolver) ([]domain.Message, error) {
	var entries []logEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	if entries == nil {
		// "null" is not a log
		return nil, fmt.Errorf("%w: not an array", ErrMalformedLog)
	}

	authors := make(map[int64]*domain.Member)
	out := make([]domain.Message, 0, len(entries))
	for i, e := range entries {
		if e.UserID == nil || e.Text == nil {
			return nil, fmt.Errorf("%w: entry %d lacks user_id or text", ErrMalformedLog, i)
		}
		id := *e.UserID
		author, seen := authors[id]
		if !seen && resolve != nil {
			m, err := resolve(id)
			if err != nil {
				return nil, fmt.Errorf("resolve author %d: %w", id, err)
			}
			author = m
			authors[id] = m
		}
		if author == nil {
			return nil, fmt.Errorf("%w: unknown author %d", ErrMalformedLog, id)
		}
		out = append(out, domain.Message{AuthorID: id, Author: author, Text: *e.Text})
	}
	return out, nil
}
