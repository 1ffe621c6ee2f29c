// Package repo implements the record store for the gym club, backed by GORM.
// This file provides the chat repository.
//
// A chat row keeps its two member ids and its whole message log in encoded
// text columns (see package codec). Lookups by member go through the
// membership LIKE patterns and are post-filtered by exact decoding.
//
// Error semantics:
//   - Missing rows return ErrNotFound (gorm.ErrRecordNotFound).
//   - Encoding violations return codec.ErrMalformedList / codec.ErrMalformedLog.
//   - Store failures are returned unchanged and never retried.
//
// Concurrency:
//   - AppendMessage is a read-modify-write of the messages column guarded by
//     an optimistic revision: the write only lands if the row still carries
//     the revision that was read, otherwise the cycle restarts from a fresh
//     read. After MaxRetries lost races it returns ErrWriteConflict, so no
//     message is ever silently dropped.
//   - Create performs no uniqueness check. Two callers that both observe
//     "no chat" for a pair and then create will produce two rows; callers
//     must look the pair up first and accept that gap.
package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/gymclub/internal/codec"
	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/membership"
	"github.com/tbourn/gymclub/internal/observability"
)

// AuthorSource supplies the resolver used to turn logged author ids back
// into members. *MemberRepo implements it.
type AuthorSource interface {
	Resolver(ctx context.Context) codec.AuthorResolver
}

// ChatRepo reads and writes the chats table of the chat store.
type ChatRepo struct {
	DB         *gorm.DB
	Authors    AuthorSource
	Metrics    *observability.Metrics
	MaxRetries int
}

// NewChatRepo returns a ChatRepo over the chat store, resolving authors
// through authors (typically the gym store's MemberRepo).
func NewChatRepo(db *gorm.DB, authors AuthorSource, m *observability.Metrics, maxRetries int) *ChatRepo {
	return &ChatRepo{DB: db, Authors: authors, Metrics: m, MaxRetries: maxRetries}
}

// Get fetches a chat by id.
func (r *ChatRepo) Get(ctx context.Context, id int64) (c *domain.Chat, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeChat, "get_chat", start, err) }(time.Now())

	var rec domain.ChatRecord
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return decodeChat(rec, r.resolver(ctx))
}

// FindByMemberPair returns the chat whose member column is exactly [a, b]
// or [b, a]. If several rows match, the oldest one wins.
func (r *ChatRepo) FindByMemberPair(ctx context.Context, a, b domain.Member) (c *domain.Chat, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeChat, "find_chat_by_pair", start, err) }(time.Now())

	ab := codec.EncodeIDList([]int64{a.ID, b.ID})
	ba := codec.EncodeIDList([]int64{b.ID, a.ID})

	var rec domain.ChatRecord
	err = r.DB.WithContext(ctx).
		Where("members = ? OR members = ?", ab, ba).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return decodeChat(rec, r.resolver(ctx))
}

// Create inserts a chat between sender and receiver with an empty log.
// It does not check whether the pair already has a chat.
func (r *ChatRepo) Create(ctx context.Context, sender, receiver domain.Member) (c *domain.Chat, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeChat, "create_chat", start, err) }(time.Now())

	ids := []int64{sender.ID, receiver.ID}
	emptyLog, err := codec.EncodeMessageLog(nil)
	if err != nil {
		return nil, err
	}
	rec := &domain.ChatRecord{
		Members:  codec.EncodeIDList(ids),
		Messages: emptyLog,
	}
	if err := r.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return &domain.Chat{
		ID:        rec.ID,
		MemberIDs: ids,
		Messages:  []domain.Message{},
		Revision:  rec.Revision,
	}, nil
}

// ListForMember returns every chat member takes part in, ordered by id.
func (r *ChatRepo) ListForMember(ctx context.Context, member domain.Member) (out []domain.Chat, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeChat, "list_chats_for_member", start, err) }(time.Now())

	var recs []domain.ChatRecord
	err = r.DB.WithContext(ctx).
		Scopes(membership.Scope("members", member.ID)).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	resolve := r.resolver(ctx)
	out = make([]domain.Chat, 0, len(recs))
	for _, rec := range recs {
		ok, err := membership.Contains(rec.Members, member.ID)
		if err != nil {
			return nil, fmt.Errorf("chat %d: %w", rec.ID, err)
		}
		if !ok {
			continue
		}
		c, err := decodeChat(rec, resolve)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// AppendMessage appends message to the persisted log of chat and returns the
// chat as written. The log is re-read from the store on every attempt, so
// chat.Messages may be stale. An author that does not resolve to a member is
// rejected with codec.ErrMalformedLog before anything is written.
func (r *ChatRepo) AppendMessage(ctx context.Context, chat domain.Chat, message domain.Message) (c *domain.Chat, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeChat, "append_message", start, err) }(time.Now())

	resolve := r.resolver(ctx)
	author, err := resolve(message.AuthorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, fmt.Errorf("%w: unknown author %d", codec.ErrMalformedLog, message.AuthorID)
	}
	message.Author = author

	db := r.DB.WithContext(ctx)
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		var rec domain.ChatRecord
		if err := db.Where("id = ?", chat.ID).First(&rec).Error; err != nil {
			return nil, err
		}
		current, err := decodeChat(rec, resolve)
		if err != nil {
			return nil, err
		}
		current.Messages = append(current.Messages, message)
		enc, err := codec.EncodeMessageLog(current.Messages)
		if err != nil {
			return nil, err
		}

		beforeUpdate(rec.TableName(), rec.ID)
		res := db.Model(&domain.ChatRecord{}).
			Where("id = ? AND revision = ?", rec.ID, rec.Revision).
			Updates(map[string]any{"messages": enc, "revision": rec.Revision + 1})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			current.Revision = rec.Revision + 1
			return current, nil
		}
		conflict(ctx, r.Metrics, rec.TableName(), rec.ID, rec.Revision, attempt+1)
	}
	return nil, fmt.Errorf("chat %d: %w", chat.ID, ErrWriteConflict)
}

// resolver returns a memoizing author resolver for one repository call.
func (r *ChatRepo) resolver(ctx context.Context) codec.AuthorResolver {
	var base codec.AuthorResolver
	if r.Authors != nil {
		base = r.Authors.Resolver(ctx)
	}
	cache := make(map[int64]*domain.Member)
	return func(id int64) (*domain.Member, error) {
		if m, ok := cache[id]; ok {
			return m, nil
		}
		if base == nil {
			return nil, nil
		}
		m, err := base(id)
		if err != nil {
			return nil, err
		}
		cache[id] = m
		return m, nil
	}
}

// decodeChat turns a persisted row into a Chat.
func decodeChat(rec domain.ChatRecord, resolve codec.AuthorResolver) (*domain.Chat, error) {
	ids, err := codec.DecodeIDList(rec.Members)
	if err != nil {
		return nil, fmt.Errorf("chat %d: %w", rec.ID, err)
	}
	if len(ids) != 2 {
		return nil, fmt.Errorf("chat %d: %w: want 2 members, have %d", rec.ID, codec.ErrMalformedList, len(ids))
	}
	msgs, err := codec.DecodeMessageLog(rec.Messages, resolve)
	if err != nil {
		return nil, fmt.Errorf("chat %d: %w", rec.ID, err)
	}
	return &domain.Chat{
		ID:        rec.ID,
		MemberIDs: ids,
		Messages:  msgs,
		Revision:  rec.Revision,
	}, nil
}
