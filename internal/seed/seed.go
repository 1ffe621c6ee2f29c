// Package seed loads a YAML fixture of members, classes and chats into the
// gym and chat stores.
//
// Members are keyed by email: an email that is already registered is reused
// as-is. Classes are inserted as given. A chat whose pair already has one is
// left untouched, so applying the same fixture twice does not repeat
// messages.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/repo"
	"github.com/tbourn/gymclub/internal/sysutil"
)

// ErrUnknownMember is returned when a class or chat references an email that
// is neither in the fixture nor in the store.
var ErrUnknownMember = errors.New("fixture references unknown member")

// Fixture is the on-disk seed document.
type Fixture struct {
	Members []MemberFixture `yaml:"members"`
	Classes []ClassFixture  `yaml:"classes"`
	Chats   []ChatFixture   `yaml:"chats"`
}

// MemberFixture describes one member.
type MemberFixture struct {
	Forename string `yaml:"forename"`
	Surname  string `yaml:"surname"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Password string `yaml:"password"`
	Tutor    bool   `yaml:"tutor"`
	Profile  string `yaml:"profile"`
}

// ClassFixture describes one class. StartDate uses domain.StartDateLayout.
type ClassFixture struct {
	TutorEmail  string   `yaml:"tutor_email"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	StartDate   string   `yaml:"start_date"`
	Applied     []string `yaml:"applied"`
}

// ChatFixture describes one chat and its opening messages.
type ChatFixture struct {
	Between  [2]string        `yaml:"between"`
	Messages []MessageFixture `yaml:"messages"`
}

// MessageFixture is one chat message.
type MessageFixture struct {
	From string `yaml:"from"`
	Text string `yaml:"text"`
}

// Load reads and strictly decodes the fixture at path. Unknown keys are
// rejected.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return Parse(data)
}

// Parse strictly decodes a fixture document.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// MemberStore is the part of the member repository Apply needs.
type MemberStore interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
}

// ClassStore is the part of the class repository Apply needs.
type ClassStore interface {
	Create(ctx context.Context, c *domain.AvailableClass) error
}

// ChatStore is the part of the chat repository Apply needs.
type ChatStore interface {
	FindByMemberPair(ctx context.Context, a, b domain.Member) (*domain.Chat, error)
	Create(ctx context.Context, sender, receiver domain.Member) (*domain.Chat, error)
	AppendMessage(ctx context.Context, chat domain.Chat, message domain.Message) (*domain.Chat, error)
}

// Report counts what Apply wrote.
type Report struct {
	MembersCreated int
	MembersReused  int
	Classes        int
	ChatsCreated   int
	ChatsSkipped   int
	Messages       int
}

// Apply writes f into the stores in order: members, classes, chats.
// It stops at the first error; rows written before it are kept.
func Apply(ctx context.Context, f *Fixture, members MemberStore, classes ClassStore, chats ChatStore) (Report, error) {
	log := zerolog.Ctx(ctx)
	var rep Report
	byEmail := map[string]domain.Member{}

	lookup := func(email string) (domain.Member, error) {
		email = normalize(email)
		if m, ok := byEmail[email]; ok {
			return m, nil
		}
		m, err := members.GetByEmail(ctx, email)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Member{}, fmt.Errorf("%w: %s", ErrUnknownMember, email)
		}
		if err != nil {
			return domain.Member{}, err
		}
		byEmail[email] = *m
		return *m, nil
	}

	for _, mf := range f.Members {
		email := normalize(mf.Email)
		if existing, err := members.GetByEmail(ctx, email); err == nil {
			byEmail[email] = *existing
			rep.MembersReused++
			continue
		} else if !errors.Is(err, repo.ErrNotFound) {
			return rep, err
		}

		m, err := domain.NewMember(strings.TrimSpace(mf.Forename), strings.TrimSpace(mf.Surname), email, mf.Phone, mf.Password)
		if err != nil {
			return rep, fmt.Errorf("member %q: %w", mf.Email, err)
		}
		m.IsTutor = mf.Tutor
		m.Profile = mf.Profile
		if err := members.Create(ctx, m); err != nil {
			return rep, fmt.Errorf("member %s: %w", email, err)
		}
		byEmail[email] = *m
		rep.MembersCreated++
		log.Debug().Int64("member_id", m.ID).Str("email", sysutil.Redact(email)).Msg("seeded member")
	}

	for _, cf := range f.Classes {
		tutor, err := lookup(cf.TutorEmail)
		if err != nil {
			return rep, fmt.Errorf("class %q: %w", cf.Title, err)
		}
		c, err := domain.NewAvailableClass(tutor.ID, cf.Title, cf.Description, cf.StartDate)
		if err != nil {
			return rep, fmt.Errorf("class %q: %w", cf.Title, err)
		}
		for _, email := range cf.Applied {
			m, err := lookup(email)
			if err != nil {
				return rep, fmt.Errorf("class %q: %w", cf.Title, err)
			}
			c.AppliedMemberIDs = append(c.AppliedMemberIDs, m.ID)
		}
		if err := classes.Create(ctx, c); err != nil {
			return rep, fmt.Errorf("class %q: %w", cf.Title, err)
		}
		rep.Classes++
		log.Debug().Int64("class_id", c.ID).Str("title", c.Title).Msg("seeded class")
	}

	for _, chf := range f.Chats {
		a, err := lookup(chf.Between[0])
		if err != nil {
			return rep, fmt.Errorf("chat: %w", err)
		}
		b, err := lookup(chf.Between[1])
		if err != nil {
			return rep, fmt.Errorf("chat: %w", err)
		}

		switch _, err := chats.FindByMemberPair(ctx, a, b); {
		case err == nil:
			rep.ChatsSkipped++
			continue
		case !errors.Is(err, repo.ErrNotFound):
			return rep, err
		}

		chat, err := chats.Create(ctx, a, b)
		if err != nil {
			return rep, err
		}
		rep.ChatsCreated++
		for _, msg := range chf.Messages {
			author, err := lookup(msg.From)
			if err != nil {
				return rep, fmt.Errorf("chat %d: %w", chat.ID, err)
			}
			if chat, err = chats.AppendMessage(ctx, *chat, domain.NewMessage(author, msg.Text)); err != nil {
				return rep, err
			}
			rep.Messages++
		}
	}

	log.Info().
		Int("members_created", rep.MembersCreated).
		Int("members_reused", rep.MembersReused).
		Int("classes", rep.Classes).
		Int("chats_created", rep.ChatsCreated).
		Int("messages", rep.Messages).
		Msg("seed applied")
	return rep, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
