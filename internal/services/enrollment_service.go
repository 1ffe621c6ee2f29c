// Package services – EnrollmentService
//
// This file implements class browsing and application. Applying for a class
// adds the member to the class roster, opens (or reuses) the member's chat
// with the class tutor and posts a greeting from the tutor into it.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/observability"
	"github.com/tbourn/gymclub/internal/repo"
	"github.com/tbourn/gymclub/internal/search"
)

// ClassStore defines the repository contract required by EnrollmentService.
type ClassStore interface {
	Fetch(ctx context.Context, id int64) (*domain.AvailableClass, error)
	ListAll(ctx context.Context) ([]domain.AvailableClass, error)
	ListForMember(ctx context.Context, member domain.Member) ([]domain.AvailableClass, error)
	Enroll(ctx context.Context, member domain.Member, klass domain.AvailableClass) (*domain.AvailableClass, error)
}

// Application is the outcome of a successful Apply.
type Application struct {
	Class *domain.AvailableClass
	Chat  *domain.Chat
}

// EnrollmentService coordinates the class and chat stores.
type EnrollmentService struct {
	Classes ClassStore
	Chats   ChatStore
	Members MemberStore

	// GreetingLocale drives casing of the member's forename in greetings.
	GreetingLocale language.Tag
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(classes ClassStore, chats ChatStore, members MemberStore) *EnrollmentService {
	return &EnrollmentService{
		Classes:        classes,
		Chats:          chats,
		Members:        members,
		GreetingLocale: language.Und,
	}
}

// Apply enrolls member in class classID and greets them from the tutor.
//
// The class is re-read before the roster check so a stale caller copy cannot
// hide an earlier application.
func (s *EnrollmentService) Apply(ctx context.Context, member domain.Member, classID int64) (*Application, error) {
	ctx, span := observability.Tracer("services/EnrollmentService").Start(ctx, "Apply",
		trace.WithAttributes(
			attribute.Int64("class.id", classID),
			attribute.Int64("member.id", member.ID),
		),
	)
	defer span.End()

	klass, err := s.Classes.Fetch(ctx, classID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	if klass.HasMember(member.ID) {
		return nil, ErrAlreadyEnrolled
	}
	tutor, err := s.Members.GetByID(ctx, klass.TutorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("tutor %d: %w", klass.TutorID, ErrMemberNotFound)
		}
		return nil, err
	}

	enrolled, err := s.Classes.Enroll(ctx, member, *klass)
	if err != nil {
		return nil, err
	}

	chat, err := s.Chats.FindByMemberPair(ctx, member, *tutor)
	if errors.Is(err, repo.ErrNotFound) {
		chat, err = s.Chats.Create(ctx, member, *tutor)
	}
	if err != nil {
		return nil, err
	}

	chat, err = s.Chats.AppendMessage(ctx, *chat, domain.NewMessage(*tutor, s.Greeting(member, *enrolled)))
	if err != nil {
		return nil, err
	}
	return &Application{Class: enrolled, Chat: chat}, nil
}

// Greeting is the tutor's message to a member who applied for c.
func (s *EnrollmentService) Greeting(member domain.Member, c domain.AvailableClass) string {
	return fmt.Sprintf("Hey, %s! You applied for %s, please attend on: %s",
		cases.Title(s.GreetingLocale).String(member.Forename), c.Title, c.StartDateText())
}

// Catalogue returns every class ordered by id.
func (s *EnrollmentService) Catalogue(ctx context.Context) ([]domain.AvailableClass, error) {
	return s.Classes.ListAll(ctx)
}

// Enrolled returns the classes member applied for.
func (s *EnrollmentService) Enrolled(ctx context.Context, member domain.Member) ([]domain.AvailableClass, error) {
	ctx, span := observability.Tracer("services/EnrollmentService").Start(ctx, "Enrolled",
		trace.WithAttributes(attribute.Int64("member.id", member.ID)),
	)
	defer span.End()

	return s.Classes.ListForMember(ctx, member)
}

// Search ranks the catalogue against query and returns up to k matches.
func (s *EnrollmentService) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	ctx, span := observability.Tracer("services/EnrollmentService").Start(ctx, "Search",
		trace.WithAttributes(attribute.String("query", query), attribute.Int("k", k)),
	)
	defer span.End()

	classes, err := s.Classes.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return search.NewClassIndex(classes, search.WithStopwords(search.DefaultStopwords)).TopK(query, k), nil
}
