// Package services – ChatService
//
// This file implements ChatService, which manages one-to-one conversations
// between members. It validates input, enforces participation and size
// rules, throttles senders, and delegates persistence to the chat store.
//
// Service-level errors (e.g., ErrChatNotFound) are returned for predictable
// cases so the CLI can map them to labels consistently.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry chat and member identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/observability"
	"github.com/tbourn/gymclub/internal/repo"
)

// ChatStore defines the repository contract required by ChatService.
type ChatStore interface {
	// Get fetches a chat by id.
	Get(ctx context.Context, id int64) (*domain.Chat, error)

	// FindByMemberPair returns the chat between a and b in either order.
	FindByMemberPair(ctx context.Context, a, b domain.Member) (*domain.Chat, error)

	// Create inserts an empty chat between sender and receiver.
	Create(ctx context.Context, sender, receiver domain.Member) (*domain.Chat, error)

	// ListForMember returns every chat member takes part in.
	ListForMember(ctx context.Context, member domain.Member) ([]domain.Chat, error)

	// AppendMessage appends message to the persisted log of chat.
	AppendMessage(ctx context.Context, chat domain.Chat, message domain.Message) (*domain.Chat, error)
}

// ChatService provides chat-level operations.
type ChatService struct {
	Chats   ChatStore
	Members MemberStore

	// MaxMessageRunes caps message text by rune length; 0 disables the cap.
	MaxMessageRunes int
	// Limiter throttles Send per author; nil disables throttling.
	Limiter *SendLimiter
}

// NewChatService constructs a ChatService.
func NewChatService(chats ChatStore, members MemberStore, maxRunes int, limiter *SendLimiter) *ChatService {
	return &ChatService{Chats: chats, Members: members, MaxMessageRunes: maxRunes, Limiter: limiter}
}

// Start opens a chat between sender and the member registered under
// receiverEmail.
func (s *ChatService) Start(ctx context.Context, sender domain.Member, receiverEmail string) (*domain.Chat, error) {
	ctx, span := observability.Tracer("services/ChatService").Start(ctx, "Start",
		trace.WithAttributes(attribute.Int64("member.id", sender.ID)),
	)
	defer span.End()

	email := NormalizeEmail(receiverEmail)
	if email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingField)
	}
	receiver, err := s.Members.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if receiver.ID == sender.ID {
		return nil, ErrSelfChat
	}

	switch _, err := s.Chats.FindByMemberPair(ctx, sender, *receiver); {
	case err == nil:
		return nil, ErrAlreadyChatting
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	return s.Chats.Create(ctx, sender, *receiver)
}

// Send appends text authored by author to chat chatID.
func (s *ChatService) Send(ctx context.Context, chatID int64, author domain.Member, text string) (*domain.Chat, error) {
	ctx, span := observability.Tracer("services/ChatService").Start(ctx, "Send",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Int64("member.id", author.ID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	chat, err := s.Chats.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if !chat.Includes(author.ID) {
		return nil, ErrNotParticipant
	}
	if !s.Limiter.Allow(author.ID) {
		return nil, ErrRateLimited
	}
	return s.Chats.AppendMessage(ctx, *chat, domain.NewMessage(author, text))
}

// Inbox returns every chat member takes part in.
func (s *ChatService) Inbox(ctx context.Context, member domain.Member) ([]domain.Chat, error) {
	ctx, span := observability.Tracer("services/ChatService").Start(ctx, "Inbox",
		trace.WithAttributes(attribute.Int64("member.id", member.ID)),
	)
	defer span.End()

	return s.Chats.ListForMember(ctx, member)
}

// Between returns the chat of a and b.
func (s *ChatService) Between(ctx context.Context, a, b domain.Member) (*domain.Chat, error) {
	c, err := s.Chats.FindByMemberPair(ctx, a, b)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	return c, err
}
