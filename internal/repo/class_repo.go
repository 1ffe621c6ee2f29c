// Package repo implements the record store for the gym club, backed by GORM.
// This file provides the class (enrollment) repository.
//
// Applied members are kept in the applied_members text column as an encoded
// id list. Enroll appends to it with the same optimistic revision protocol
// as ChatRepo.AppendMessage and, like the source behaviour it preserves,
// does not prevent the same member from being appended twice.
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

// ClassRepo reads and writes the classes table of the gym store.
type ClassRepo struct {
	DB         *gorm.DB
	Metrics    *observability.Metrics
	MaxRetries int
}

// NewClassRepo returns a ClassRepo over the gym store.
func NewClassRepo(db *gorm.DB, m *observability.Metrics, maxRetries int) *ClassRepo {
	return &ClassRepo{DB: db, Metrics: m, MaxRetries: maxRetries}
}

// Create inserts c and sets its ID and Revision.
func (r *ClassRepo) Create(ctx context.Context, c *domain.AvailableClass) (err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "create_class", start, err) }(time.Now())

	rec := &domain.ClassRecord{
		TutorID:        c.TutorID,
		AppliedMembers: codec.EncodeIDList(c.AppliedMemberIDs),
		Title:          c.Title,
		Description:    c.Description,
		StartDate:      c.StartDateText(),
	}
	if err := r.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	c.ID, c.Revision = rec.ID, rec.Revision
	if c.AppliedMemberIDs == nil {
		c.AppliedMemberIDs = []int64{}
	}
	return nil
}

// Fetch returns the class with the given id, or ErrNotFound.
func (r *ClassRepo) Fetch(ctx context.Context, id int64) (c *domain.AvailableClass, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "fetch_class", start, err) }(time.Now())

	var rec domain.ClassRecord
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return decodeClass(rec)
}

// ListAll returns every class ordered by id.
func (r *ClassRepo) ListAll(ctx context.Context) (out []domain.AvailableClass, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "list_classes", start, err) }(time.Now())

	var recs []domain.ClassRecord
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return decodeClasses(recs, 0)
}

// ListForMember returns every class member applied for, ordered by id.
func (r *ClassRepo) ListForMember(ctx context.Context, member domain.Member) (out []domain.AvailableClass, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "list_classes_for_member", start, err) }(time.Now())

	var recs []domain.ClassRecord
	err = r.DB.WithContext(ctx).
		Scopes(membership.Scope("applied_members", member.ID)).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return decodeClasses(recs, member.ID)
}

// Enroll appends member to the applied list of klass and returns the class
// as written. The list is re-read from the store on every attempt; klass
// only supplies the id.
func (r *ClassRepo) Enroll(ctx context.Context, member domain.Member, klass domain.AvailableClass) (c *domain.AvailableClass, err error) {
	defer func(start time.Time) { observe(r.Metrics, storeGym, "enroll", start, err) }(time.Now())

	db := r.DB.WithContext(ctx)
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		var rec domain.ClassRecord
		if err := db.Where("id = ?", klass.ID).First(&rec).Error; err != nil {
			return nil, err
		}
		current, err := decodeClass(rec)
		if err != nil {
			return nil, err
		}
		current.AppliedMemberIDs = append(current.AppliedMemberIDs, member.ID)
		enc := codec.EncodeIDList(current.AppliedMemberIDs)

		beforeUpdate(rec.TableName(), rec.ID)
		res := db.Model(&domain.ClassRecord{}).
			Where("id = ? AND revision = ?", rec.ID, rec.Revision).
			Updates(map[string]any{"applied_members": enc, "revision": rec.Revision + 1})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			current.Revision = rec.Revision + 1
			return current, nil
		}
		conflict(ctx, r.Metrics, rec.TableName(), rec.ID, rec.Revision, attempt+1)
	}
	return nil, fmt.Errorf("class %d: %w", klass.ID, ErrWriteConflict)
}

// decodeClasses decodes recs; when member is non-zero, rows whose list does
// not hold member exactly are dropped.
func decodeClasses(recs []domain.ClassRecord, member int64) ([]domain.AvailableClass, error) {
	out := make([]domain.AvailableClass, 0, len(recs))
	for _, rec := range recs {
		c, err := decodeClass(rec)
		if err != nil {
			return nil, err
		}
		if member != 0 && !c.HasMember(member) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

// decodeClass turns a persisted row into an AvailableClass.
func decodeClass(rec domain.ClassRecord) (*domain.AvailableClass, error) {
	ids, err := codec.DecodeIDList(rec.AppliedMembers)
	if err != nil {
		return nil, fmt.Errorf("class %d: %w", rec.ID, err)
	}
	start, err := domain.ParseStartDate(rec.StartDate)
	if err != nil {
		return nil, fmt.Errorf("class %d: %w", rec.ID, err)
	}
	return &domain.AvailableClass{
		ID:               rec.ID,
		TutorID:          rec.TutorID,
		Title:            rec.Title,
		Description:      rec.Description,
		StartDate:        start,
		AppliedMemberIDs: ids,
		Revision:         rec.Revision,
	}, nil
}
