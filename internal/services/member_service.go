// Package services – MemberService
//
// This file implements registration, login and lookup of club members.
// Input is normalized before it reaches the store: emails are trimmed and
// lower-cased, names are title-cased, and a member registering without a
// profile picture gets a unique placeholder reference.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/repo"
)

// MemberStore defines the repository contract required by MemberService.
type MemberStore interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id int64) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
}

// Registration carries the fields of a new member.
type Registration struct {
	Forename string
	Surname  string
	Email    string
	Phone    string
	Password string
	IsTutor  bool
	// Profile is a picture path; only its base name is kept.
	Profile string
}

// MemberService provides member-level operations.
type MemberService struct {
	Repo MemberStore
	// NameLocale drives title-casing of forenames and surnames.
	NameLocale language.Tag
}

// NewMemberService constructs a MemberService with locale-neutral casing.
func NewMemberService(r MemberStore) *MemberService {
	return &MemberService{Repo: r, NameLocale: language.Und}
}

// Register validates and normalizes r, then stores a new member.
// Every field except Profile and IsTutor is required.
func (s *MemberService) Register(ctx context.Context, r Registration) (*domain.Member, error) {
	email := NormalizeEmail(r.Email)
	fields := []struct{ name, value string }{
		{"email", email},
		{"password", r.Password},
		{"forename", strings.TrimSpace(r.Forename)},
		{"surname", strings.TrimSpace(r.Surname)},
		{"phone", strings.TrimSpace(r.Phone)},
	}
	for _, f := range fields {
		if f.value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	switch _, err := s.Repo.GetByEmail(ctx, email); {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	title := cases.Title(s.NameLocale)
	m, err := domain.NewMember(
		title.String(strings.TrimSpace(r.Forename)),
		title.String(strings.TrimSpace(r.Surname)),
		email,
		strings.TrimSpace(r.Phone),
		r.Password,
	)
	if err != nil {
		return nil, err
	}
	m.IsTutor = r.IsTutor
	m.Profile = profileRef(r.Profile)

	if err := s.Repo.Create(ctx, m); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return m, nil
}

// Login returns the member with email when password matches verbatim.
func (s *MemberService) Login(ctx context.Context, email, password string) (*domain.Member, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingField)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password", ErrMissingField)
	}
	m, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if m.Password != password {
		return nil, ErrInvalidCredentials
	}
	return m, nil
}

// Get returns the member with id.
func (s *MemberService) Get(ctx context.Context, id int64) (*domain.Member, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	return m, err
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// profileRef keeps the base name of p, or invents a placeholder.
func profileRef(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "profiles/" + uuid.NewString() + ".png"
	}
	return filepath.Base(p)
}
