package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm/logger"

	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/repo"
)

var errBoom = errors.New("boom")

// ----- Fake member store -----

type fakeMembers struct {
	byID    map[int64]*domain.Member
	nextID  int64
	err     error // returned by every call when set
	created []*domain.Member
}

func newFakeMembers(ms ...domain.Member) *fakeMembers {
	f := &fakeMembers{byID: map[int64]*domain.Member{}}
	for i := range ms {
		m := ms[i]
		f.byID[m.ID] = &m
		if m.ID > f.nextID {
			f.nextID = m.ID
		}
	}
	return f
}

func (f *fakeMembers) Create(ctx context.Context, m *domain.Member) error {
	if f.err != nil {
		return f.err
	}
	for _, have := range f.byID {
		if have.Email == m.Email {
			return repo.ErrDuplicate
		}
	}
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.byID[m.ID] = &cp
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMembers) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.byID[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeMembers) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.byID {
		if m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

// ----- Fake chat store -----

type fakeChats struct {
	chats     []*domain.Chat
	getErr    error
	findErr   error
	appendErr error

	created  int
	appended []domain.Message
}

func (f *fakeChats) Get(ctx context.Context, id int64) (*domain.Chat, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, c := range f.chats {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeChats) FindByMemberPair(ctx context.Context, a, b domain.Member) (*domain.Chat, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, c := range f.chats {
		x, y := c.MemberIDs[0], c.MemberIDs[1]
		if (x == a.ID && y == b.ID) || (x == b.ID && y == a.ID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeChats) Create(ctx context.Context, sender, receiver domain.Member) (*domain.Chat, error) {
	f.created++
	c := &domain.Chat{ID: int64(len(f.chats) + 1), MemberIDs: []int64{sender.ID, receiver.ID}, Messages: []domain.Message{}}
	f.chats = append(f.chats, c)
	cp := *c
	return &cp, nil
}

func (f *fakeChats) ListForMember(ctx context.Context, member domain.Member) ([]domain.Chat, error) {
	var out []domain.Chat
	for _, c := range f.chats {
		if c.Includes(member.ID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChats) AppendMessage(ctx context.Context, chat domain.Chat, message domain.Message) (*domain.Chat, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appended = append(f.appended, message)
	for _, c := range f.chats {
		if c.ID == chat.ID {
			c.Messages = append(c.Messages, message)
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

// ----- Fake class store -----

type fakeClasses struct {
	classes   []*domain.AvailableClass
	fetchErr  error
	enrollErr error
	enrolled  []int64
}

func (f *fakeClasses) Fetch(ctx context.Context, id int64) (*domain.AvailableClass, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	for _, c := range f.classes {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeClasses) ListAll(ctx context.Context) ([]domain.AvailableClass, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]domain.AvailableClass, 0, len(f.classes))
	for _, c := range f.classes {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeClasses) ListForMember(ctx context.Context, member domain.Member) ([]domain.AvailableClass, error) {
	var out []domain.AvailableClass
	for _, c := range f.classes {
		if c.HasMember(member.ID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeClasses) Enroll(ctx context.Context, member domain.Member, klass domain.AvailableClass) (*domain.AvailableClass, error) {
	if f.enrollErr != nil {
		return nil, f.enrollErr
	}
	for _, c := range f.classes {
		if c.ID == klass.ID {
			c.AppliedMemberIDs = append(c.AppliedMemberIDs, member.ID)
			f.enrolled = append(f.enrolled, member.ID)
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

// ----- Real stores -----

type realStores struct {
	members *repo.MemberRepo
	chats   *repo.ChatRepo
	classes *repo.ClassRepo
}

// newRealStores opens migrated gym and chat stores under t.TempDir().
func newRealStores(t *testing.T) realStores {
	t.Helper()
	dir := t.TempDir()
	opts := repo.Options{Logger: logger.Default.LogMode(logger.Silent)}

	gym, err := repo.OpenSQLite(filepath.Join(dir, "gym.sqlite"), opts)
	if err != nil {
		t.Fatalf("open gym: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(gym) })
	chat, err := repo.OpenSQLite(filepath.Join(dir, "chat.sqlite"), opts)
	if err != nil {
		t.Fatalf("open chat: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(chat) })

	if err := repo.MigrateGymStore(gym); err != nil {
		t.Fatalf("migrate gym: %v", err)
	}
	if err := repo.MigrateChatStore(chat); err != nil {
		t.Fatalf("migrate chat: %v", err)
	}

	members := repo.NewMemberRepo(gym, nil)
	return realStores{
		members: members,
		chats:   repo.NewChatRepo(chat, members, nil, 3),
		classes: repo.NewClassRepo(gym, nil, 3),
	}
}
