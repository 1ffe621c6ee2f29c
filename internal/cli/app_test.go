package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/gymclub/internal/codec"
	"github.com/tbourn/gymclub/internal/config"
	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/repo"
	"github.com/tbourn/gymclub/internal/seed"
	"github.com/tbourn/gymclub/internal/services"
	"github.com/tbourn/gymclub/internal/utils"
)

const fixtureYAML = `
members:
  - {forename: Tara, surname: Stone, email: tara@gym.test, phone: "555-0100", password: pw, tutor: true}
  - {forename: Alice, surname: Smith, email: alice@gym.test, phone: "555-0101", password: pw}
  - {forename: Bob, surname: Brown, email: bob@gym.test, phone: "555-0102", password: pw}
classes:
  - tutor_email: tara@gym.test
    title: Yoga
    description: Gentle flow and breathing
    start_date: "2024-05-01 18:00"
    applied: [alice@gym.test]
  - tutor_email: tara@gym.test
    title: Spin
    description: Indoor cycling intervals
    start_date: "2024-05-02 07:30"
chats:
  - between: [alice@gym.test, bob@gym.test]
    messages:
      - {from: alice@gym.test, text: Heyyyyyy}
      - {from: bob@gym.test, text: "How are you doing?? :)"}
`

type harness struct {
	app *App
	out *bytes.Buffer
	dir string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		GymDBPath:    filepath.Join(dir, "data", "gym.sqlite"),
		ChatDBPath:   filepath.Join(dir, "data", "chat.sqlite"),
		BusyTimeout:  time.Second,
		WriteRetries: 3,
		Messages:     config.MessageConfig{MaxRunes: 40, Burst: 1},
		SeedPath:     filepath.Join(dir, "seed.yaml"),
	}
	if err := os.WriteFile(cfg.SeedPath, []byte(fixtureYAML), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	out := &bytes.Buffer{}
	app, err := Open(context.Background(), cfg, nil, out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return harness{app: app, out: out, dir: dir}
}

func (h harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	h.out.Reset()
	err := h.app.Run(context.Background(), args)
	return h.out.String(), err
}

func (h harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestOpen_CreatesStoreDirectories(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"gym.sqlite", "chat.sqlite"} {
		if _, err := os.Stat(filepath.Join(h.dir, "data", name)); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestOpen_BadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{
		GymDBPath:  filepath.Join(blocker, "gym.sqlite"),
		ChatDBPath: filepath.Join(dir, "chat.sqlite"),
	}
	if _, err := Open(context.Background(), cfg, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for store below a regular file")
	}
}

func TestRun_Scenario(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "seed")
	if want := "seeded: members +3 (reused 0), classes +2, chats +1 (skipped 0), messages +2\n"; out != want {
		t.Fatalf("seed = %q, want %q", out, want)
	}

	out = h.mustRun(t, "classes")
	for _, want := range []string{
		"#1 Yoga | 2024-05-01 18:00 | tutor #1 | 1 applied",
		"#2 Spin | 2024-05-02 07:30 | tutor #1 | 0 applied",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("classes missing %q in:\n%s", want, out)
		}
	}

	out = h.mustRun(t, "search", "-q", "cycling intervals", "-k", "1")
	if !strings.HasPrefix(out, "#2 Spin (") {
		t.Fatalf("search = %q", out)
	}

	bob := []string{"-email", "bob@gym.test", "-password", "pw"}
	out = h.mustRun(t, append([]string{"apply", "-class", "1"}, bob...)...)
	if !strings.Contains(out, "applied for Yoga on 2024-05-01 18:00; chat #2") {
		t.Fatalf("apply = %q", out)
	}
	if !strings.Contains(out, "Hey, Bob! You applied for Yoga, please attend on: 2024-05-01 18:00") {
		t.Fatalf("apply greeting missing in %q", out)
	}

	_, err := h.run(t, append([]string{"apply", "-class", "1"}, bob...)...)
	if !errors.Is(err, services.ErrAlreadyEnrolled) {
		t.Fatalf("second apply err = %v", err)
	}

	out = h.mustRun(t, append([]string{"enrolled"}, bob...)...)
	if !strings.Contains(out, "#1 Yoga") || strings.Contains(out, "Spin") {
		t.Fatalf("enrolled = %q", out)
	}

	out = h.mustRun(t, append([]string{"chats"}, bob...)...)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("chats = %q", out)
	}
	if lines[0] != "#1 with Alice Smith: How are you doing?? :)" {
		t.Fatalf("chats[0] = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "#2 with Tara Stone: Hey, Bob!") {
		t.Fatalf("chats[1] = %q", lines[1])
	}

	out = h.mustRun(t, "chat-send", "-email", "alice@gym.test", "-password", "pw", "-chat", "1", "-text", "  fine, you?  ")
	if out != "sent to chat #1 (3 messages)\n" {
		t.Fatalf("chat-send = %q", out)
	}

	_, err = h.run(t, "chat-send", "-email", "tara@gym.test", "-password", "pw", "-chat", "1", "-text", "hi")
	if !errors.Is(err, services.ErrNotParticipant) {
		t.Fatalf("outsider send err = %v", err)
	}

	out = h.mustRun(t, "stats")
	if !strings.HasPrefix(out, "members=3 tutors=1 classes=2 chats=2 ") {
		t.Fatalf("stats = %q", out)
	}

	out = h.mustRun(t, "seed")
	if !strings.Contains(out, "members +0 (reused 3)") || !strings.Contains(out, "chats +0 (skipped 1)") {
		t.Fatalf("reseed = %q", out)
	}
}

func TestRun_RegisterLoginAndChat(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "register", "-forename", "ann", "-surname", "lee", "-email", " Ann@Gym.test ",
		"-phone", "555-0199", "-password", "secret")
	if out != "registered #1 Ann Lee <ann@gym.test>\n" {
		t.Fatalf("register = %q", out)
	}
	h.mustRun(t, "register", "-forename", "Tom", "-surname", "Hill", "-email", "tom@gym.test",
		"-phone", "555-0198", "-password", "pw", "-tutor")

	_, err := h.run(t, "register", "-forename", "Ann", "-surname", "Lee", "-email", "ann@gym.test",
		"-phone", "1", "-password", "x")
	if !errors.Is(err, services.ErrEmailTaken) {
		t.Fatalf("duplicate register err = %v", err)
	}

	out = h.mustRun(t, "login", "-email", "tom@gym.test", "-password", "pw")
	if out != "welcome Tom Hill (#2, tutor)\n" {
		t.Fatalf("login = %q", out)
	}
	if _, err := h.run(t, "login", "-email", "tom@gym.test", "-password", "nope"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("bad password err = %v", err)
	}
	if _, err := h.run(t, "login", "-password", "pw"); !errors.Is(err, services.ErrMissingField) {
		t.Fatalf("no email err = %v", err)
	}

	ann := []string{"-email", "ann@gym.test", "-password", "secret"}
	if _, err := h.run(t, append([]string{"chat-start", "-with", "ann@gym.test"}, ann...)...); !errors.Is(err, services.ErrSelfChat) {
		t.Fatalf("self chat err = %v", err)
	}
	out = h.mustRun(t, append([]string{"chat-start", "-with", "tom@gym.test"}, ann...)...)
	if out != "chat #1 started\n" {
		t.Fatalf("chat-start = %q", out)
	}
	if _, err := h.run(t, "chat-start", "-email", "tom@gym.test", "-password", "pw", "-with", "ann@gym.test"); !errors.Is(err, services.ErrAlreadyChatting) {
		t.Fatalf("reverse chat-start err = %v", err)
	}

	out = h.mustRun(t, append([]string{"chats"}, ann...)...)
	if out != "#1 with Tom Hill: (no messages)\n" {
		t.Fatalf("chats = %q", out)
	}

	long := strings.Repeat("x", 41)
	if _, err := h.run(t, append([]string{"chat-send", "-chat", "1", "-text", long}, ann...)...); !errors.Is(err, services.ErrMessageTooLong) {
		t.Fatalf("long message err = %v", err)
	}
	if _, err := h.run(t, append([]string{"chat-send", "-chat", "x", "-text", "hi"}, ann...)...); !errors.Is(err, utils.ErrInvalidID) {
		t.Fatalf("bad chat id err = %v", err)
	}
}

func TestRun_EmptyListings(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "register", "-forename", "a", "-surname", "b", "-email", "a@gym.test", "-phone", "1", "-password", "pw")

	if out := h.mustRun(t, "classes"); out != "no classes\n" {
		t.Fatalf("classes = %q", out)
	}
	if out := h.mustRun(t, "search", "-q", "yoga"); out != "no matching classes\n" {
		t.Fatalf("search = %q", out)
	}
	if out := h.mustRun(t, "chats", "-email", "a@gym.test", "-password", "pw"); out != "no chats\n" {
		t.Fatalf("chats = %q", out)
	}
	if out := h.mustRun(t, "stats"); out != "members=1 tutors=0 classes=0 chats=0 max_chat_revision=0\n" {
		t.Fatalf("stats = %q", out)
	}
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)
	cases := [][]string{
		nil,
		{"dance"},
		{"classes", "extra"},
		{"login", "-nope"},
	}
	for _, args := range cases {
		if _, err := h.run(t, args...); !errors.Is(err, ErrUsage) {
			t.Errorf("%v: err = %v, want ErrUsage", args, err)
		}
	}
}

func TestRun_SeedErrors(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(t, "seed", "-file", filepath.Join(h.dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
	if _, err := h.run(t, "seed", "-file", ""); !errors.Is(err, services.ErrMissingField) {
		t.Fatalf("empty -file err = %v", err)
	}

	bad := filepath.Join(h.dir, "bad.yaml")
	doc := "classes:\n  - {tutor_email: ghost@gym.test, title: X, start_date: \"2024-01-01 10:00\"}\n"
	if err := os.WriteFile(bad, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := h.run(t, "seed", "-file", bad)
	if !errors.Is(err, seed.ErrUnknownMember) {
		t.Fatalf("unknown tutor err = %v", err)
	}
}

func TestExec_PrintsLabel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.out.Reset()
	if code := h.app.Exec(ctx, []string{"login", "-email", "ghost@gym.test", "-password", "pw"}); code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if got := h.out.String(); got != "NOT FOUND\n" {
		t.Fatalf("label = %q", got)
	}

	h.out.Reset()
	if code := h.app.Exec(ctx, []string{"nope"}); code != 2 {
		t.Fatalf("usage code = %d, want 2", code)
	}
	if got := h.out.String(); !strings.HasPrefix(got, "usage: gymclub") || !strings.HasSuffix(got, "USAGE\n") {
		t.Fatalf("usage output = %q", got)
	}

	h.out.Reset()
	if code := h.app.Exec(ctx, []string{"stats"}); code != 0 {
		t.Fatalf("stats code = %d", code)
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "OK"},
		{fmt.Errorf("%w: email", services.ErrMissingField), "MISSING FIELD"},
		{services.ErrEmailTaken, "USER EXISTS"},
		{services.ErrMemberNotFound, "NOT FOUND"},
		{fmt.Errorf("tutor 5: %w", services.ErrMemberNotFound), "NOT FOUND"},
		{services.ErrClassNotFound, "NOT FOUND"},
		{services.ErrChatNotFound, "NOT FOUND"},
		{services.ErrInvalidCredentials, "INVALID PASSWORD"},
		{services.ErrSelfChat, "NOT YOURSELF"},
		{services.ErrAlreadyChatting, "ALREADY CHATTING"},
		{services.ErrNotParticipant, "NOT IN CHAT"},
		{services.ErrEmptyMessage, "EMPTY MESSAGE"},
		{services.ErrMessageTooLong, "TOO LONG"},
		{services.ErrRateLimited, "SLOW DOWN"},
		{services.ErrAlreadyEnrolled, "YOU'RE ALREADY IN THE CLASS"},
		{fmt.Errorf("chat 3: %w", codec.ErrMalformedLog), "CORRUPT RECORD"},
		{fmt.Errorf("class 3: %w", codec.ErrMalformedList), "CORRUPT RECORD"},
		{fmt.Errorf("class 3: %w", domain.ErrMalformedDate), "CORRUPT RECORD"},
		{fmt.Errorf("chat 3: %w", repo.ErrWriteConflict), "BUSY, TRY AGAIN"},
		{utils.ErrInvalidID, "INVALID ID"},
		{seed.ErrUnknownMember, "BAD FIXTURE"},
		{ErrUsage, "USAGE"},
		{errors.New("disk on fire"), "ERROR"},
	}
	for _, tc := range cases {
		if got := Label(tc.err); got != tc.want {
			t.Errorf("Label(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
