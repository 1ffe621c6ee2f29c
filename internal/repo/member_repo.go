// Package repo implements the record store for the gym club, backed by GORM.
// This file provides repository functions for the Member model, which lives
// in the gym store and is referenced by id from chats and classes.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/gymclub/internal/codec"
	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/observability"
)

// MemberRepo reads and writes the members table.
type MemberRepo struct {
	DB      *gorm.DB
	Metrics *observability.Metrics
}

// NewMemberRepo returns a MemberRepo over the gym store.
func NewMemberRepo(db *gorm.DB, m *observability.Metrics) *MemberRepo {
	return &MemberRepo{DB: db, Metrics: m}
}

// Create inserts m and sets its store-assigned ID. A taken email yields
// ErrDuplicate.
func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) (err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "create_member", start, err) }(time.Now())

	if strings.TrimSpace(m.Email) == "" {
		return domain.ErrEmptyEmail
	}
	if err := r.DB.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID fetches a member by id, or ErrNotFound.
func (r *MemberRepo) GetByID(ctx context.Context, id int64) (m *domain.Member, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "get_member", start, err) }(time.Now())

	var out domain.Member
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByEmail fetches a member by exact email, or ErrNotFound.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (m *domain.Member, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "get_member_by_email", start, err) }(time.Now())

	var out domain.Member
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// Resolver adapts GetByID to codec.AuthorResolver: a missing member
// resolves to (nil, nil) so the codec reports a malformed log, while store
// failures propagate.
func (r *MemberRepo) Resolver(ctx context.Context) codec.AuthorResolver {
	return func(id int64) (*domain.Member, error) {
		m, err := r.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return m, err
	}
}
