package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/observability"
	"github.com/tbourn/gymclub/internal/repo"
	"github.com/tbourn/gymclub/internal/seed"
	"github.com/tbourn/gymclub/internal/services"
	"github.com/tbourn/gymclub/internal/utils"
)

type command struct {
	name    string
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{"seed", "load a YAML fixture", (*App).seed},
	{"register", "create a member", (*App).register},
	{"login", "check member credentials", (*App).login},
	{"classes", "list every class", (*App).classes},
	{"search", "rank classes against a query", (*App).search},
	{"apply", "enroll in a class", (*App).apply},
	{"enrolled", "list your classes", (*App).enrolled},
	{"chat-start", "open a chat with another member", (*App).chatStart},
	{"chat-send", "send a message to a chat", (*App).chatSend},
	{"chats", "list your chats", (*App).chats},
	{"stats", "summarize both stores", (*App).stats},
}

// Run executes the subcommand named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return ErrUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			ctx, span := observability.StartCommand(ctx, c.name)
			defer span.End()

			zerolog.Ctx(ctx).Debug().Str("command", c.name).Msg("run")
			err := c.run(a, ctx, args[1:])
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, Label(err))
			}
			return err
		}
	}
	a.usage()
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

// Exec runs args and prints the error label on failure. It returns the
// process exit code.
func (a *App) Exec(ctx context.Context, args []string) int {
	err := a.Run(ctx, args)
	if err == nil {
		return 0
	}
	zerolog.Ctx(ctx).Debug().Err(err).Msg("command failed")
	fmt.Fprintln(a.Out, Label(err))
	if errors.Is(err, ErrUsage) {
		return 2
	}
	return 1
}

func (a *App) usage() {
	fmt.Fprintln(a.Out, "usage: gymclub <command> [flags]")
	for _, c := range commands {
		fmt.Fprintf(a.Out, "  %-11s %s\n", c.name, c.summary)
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected argument %q", ErrUsage, fs.Name(), fs.Arg(0))
	}
	return nil
}

// credentials registers -email and -password on fs.
type credentials struct {
	email, password string
}

func (c *credentials) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "member email")
	fs.StringVar(&c.password, "password", "", "member password")
}

func (a *App) signIn(ctx context.Context, c credentials) (*domain.Member, error) {
	if strings.TrimSpace(c.email) == "" {
		return nil, fmt.Errorf("%w: email", services.ErrMissingField)
	}
	return a.Members.Login(ctx, c.email, c.password)
}

func (a *App) seed(ctx context.Context, args []string) error {
	fs := a.flags("seed")
	file := fs.String("file", a.SeedPath, "fixture path")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: file", services.ErrMissingField)
	}
	f, err := seed.Load(*file)
	if err != nil {
		return err
	}
	rep, err := seed.Apply(ctx, f, a.MemberRepo, a.ClassRepo, a.ChatRepo)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "seeded: members +%d (reused %d), classes +%d, chats +%d (skipped %d), messages +%d\n",
		rep.MembersCreated, rep.MembersReused, rep.Classes, rep.ChatsCreated, rep.ChatsSkipped, rep.Messages)
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	var r services.Registration
	fs.StringVar(&r.Forename, "forename", "", "first name")
	fs.StringVar(&r.Surname, "surname", "", "last name")
	fs.StringVar(&r.Email, "email", "", "login email")
	fs.StringVar(&r.Phone, "phone", "", "phone number")
	fs.StringVar(&r.Password, "password", "", "password")
	fs.BoolVar(&r.IsTutor, "tutor", false, "register as a tutor")
	fs.StringVar(&r.Profile, "profile", "", "profile picture path")
	if err := parse(fs, args); err != nil {
		return err
	}
	m, err := a.Members.Register(ctx, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "registered #%d %s <%s>\n", m.ID, m.FullName(), m.Email)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	var c credentials
	c.bind(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	m, err := a.signIn(ctx, c)
	if err != nil {
		return err
	}
	role := "member"
	if m.IsTutor {
		role = "tutor"
	}
	fmt.Fprintf(a.Out, "welcome %s (#%d, %s)\n", m.FullName(), m.ID, role)
	return nil
}

func (a *App) classes(ctx context.Context, args []string) error {
	if err := parse(a.flags("classes"), args); err != nil {
		return err
	}
	list, err := a.Enrollment.Catalogue(ctx)
	if err != nil {
		return err
	}
	a.printClasses(list)
	return nil
}

func (a *App) search(ctx context.Context, args []string) error {
	fs := a.flags("search")
	q := fs.String("q", "", "query text")
	k := fs.Int("k", 3, "number of results")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*q) == "" {
		return fmt.Errorf("%w: q", services.ErrMissingField)
	}
	results, err := a.Enrollment.Search(ctx, *q, *k)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(a.Out, "no matching classes")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(a.Out, "#%d %s (%.3f)\n", r.ClassID, r.Title, r.Score)
	}
	return nil
}

func (a *App) apply(ctx context.Context, args []string) error {
	fs := a.flags("apply")
	var c credentials
	c.bind(fs)
	class := fs.String("class", "", "class id")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := utils.ParseID(*class)
	if err != nil {
		return err
	}
	m, err := a.signIn(ctx, c)
	if err != nil {
		return err
	}
	app, err := a.Enrollment.Apply(ctx, *m, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "applied for %s on %s; chat #%d\n", app.Class.Title, app.Class.StartDateText(), app.Chat.ID)
	if last, ok := app.Chat.LastMessage(); ok {
		fmt.Fprintln(a.Out, last.Text)
	}
	return nil
}

func (a *App) enrolled(ctx context.Context, args []string) error {
	fs := a.flags("enrolled")
	var c credentials
	c.bind(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	m, err := a.signIn(ctx, c)
	if err != nil {
		return err
	}
	list, err := a.Enrollment.Enrolled(ctx, *m)
	if err != nil {
		return err
	}
	a.printClasses(list)
	return nil
}

func (a *App) chatStart(ctx context.Context, args []string) error {
	fs := a.flags("chat-start")
	var c credentials
	c.bind(fs)
	with := fs.String("with", "", "email of the other member")
	if err := parse(fs, args); err != nil {
		return err
	}
	m, err := a.signIn(ctx, c)
	if err != nil {
		return err
	}
	chat, err := a.Chats.Start(ctx, *m, *with)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "chat #%d started\n", chat.ID)
	return nil
}

func (a *App) chatSend(ctx context.Context, args []string) error {
	fs := a.flags("chat-send")
	var c credentials
	c.bind(fs)
	chatID := fs.String("chat", "", "chat id")
	text := fs.String("text", "", "message text")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := utils.ParseID(*chatID)
	if err != nil {
		return err
	}
	m, err := a.signIn(ctx, c)
	if err != nil {
		return err
	}
	chat, err := a.Chats.Send(ctx, id, *m, *text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "sent to chat #%d (%d messages)\n", chat.ID, len(chat.Messages))
	return nil
}

func (a *App) chats(ctx context.Context, args []string) error {
	fs := a.flags("chats")
	var c credentials
	c.bind(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	m, err := a.signIn(ctx, c)
	if err != nil {
		return err
	}
	list, err := a.Chats.Inbox(ctx, *m)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.Out, "no chats")
		return nil
	}
	for _, chat := range list {
		name := "?"
		if other, ok := chat.Counterpart(m.ID); ok {
			if o, err := a.Members.Get(ctx, other); err == nil {
				name = o.FullName()
			}
		}
		last := "(no messages)"
		if msg, ok := chat.LastMessage(); ok {
			last = msg.Text
		}
		fmt.Fprintf(a.Out, "#%d with %s: %s\n", chat.ID, name, last)
	}
	return nil
}

func (a *App) stats(ctx context.Context, args []string) error {
	if err := parse(a.flags("stats"), args); err != nil {
		return err
	}
	s, err := repo.CollectStats(ctx, a.Gym, a.Chat)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "members=%d tutors=%d classes=%d chats=%d max_chat_revision=%d\n",
		s.Members, s.Tutors, s.Classes, s.Chats, s.MaxChatRevision)
	return nil
}

func (a *App) printClasses(list []domain.AvailableClass) {
	if len(list) == 0 {
		fmt.Fprintln(a.Out, "no classes")
		return
	}
	for _, c := range list {
		fmt.Fprintf(a.Out, "#%d %s | %s | tutor #%d | %d applied\n",
			c.ID, c.Title, c.StartDateText(), c.TutorID, len(c.AppliedMemberIDs))
	}
}
