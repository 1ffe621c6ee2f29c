package repo

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/gymclub/internal/domain"
)

type stores struct {
	gym     *gorm.DB
	chat    *gorm.DB
	members *MemberRepo
	chats   *ChatRepo
	classes *ClassRepo
}

// newStores opens migrated gym and chat stores in a temp dir.
func newStores(t *testing.T) *stores {
	t.Helper()

	dir := t.TempDir()
	open := func(name string) *gorm.DB {
		db, err := OpenSQLite(filepath.Join(dir, name), Options{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		// Release the file handle before TempDir cleanup.
		t.Cleanup(func() { _ = Close(db) })
		return db
	}

	gym, chat := open("gym.sqlite"), open("chat.sqlite")
	if err := MigrateGymStore(gym); err != nil {
		t.Fatalf("migrate gym: %v", err)
	}
	if err := MigrateChatStore(chat); err != nil {
		t.Fatalf("migrate chat: %v", err)
	}

	members := NewMemberRepo(gym, nil)
	return &stores{
		gym:     gym,
		chat:    chat,
		members: members,
		chats:   NewChatRepo(chat, members, nil, 3),
		classes: NewClassRepo(gym, nil, 3),
	}
}

func (s *stores) addMember(t *testing.T, forename, email string) domain.Member {
	t.Helper()
	m, err := domain.NewMember(forename, "Test", email, "555", "pw")
	if err != nil {
		t.Fatalf("NewMember: %v", err)
	}
	if err := s.members.Create(context.Background(), m); err != nil {
		t.Fatalf("create member %s: %v", email, err)
	}
	return *m
}

// withBeforeUpdate swaps the read-modify-write hook for the test duration.
func withBeforeUpdate(t *testing.T, fn func(table string, id int64)) {
	t.Helper()
	prev := beforeUpdate
	beforeUpdate = fn
	t.Cleanup(func() { beforeUpdate = prev })
}
