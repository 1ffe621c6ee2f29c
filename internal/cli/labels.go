package cli

import (
	"errors"

	"github.com/tbourn/gymclub/internal/codec"
	"github.com/tbourn/gymclub/internal/domain"
	"github.com/tbourn/gymclub/internal/repo"
	"github.com/tbourn/gymclub/internal/seed"
	"github.com/tbourn/gymclub/internal/services"
	"github.com/tbourn/gymclub/internal/utils"
)

// ErrUsage is returned for an unknown subcommand or bad flags.
var ErrUsage = errors.New("usage")

// labels maps errors to the short upper-case labels printed by the CLI.
// Order matters: the first match wins.
var labels = []struct {
	err   error
	label string
}{
	{ErrUsage, "USAGE"},
	{utils.ErrInvalidID, "INVALID ID"},
	{services.ErrMissingField, "MISSING FIELD"},
	{services.ErrEmailTaken, "USER EXISTS"},
	{services.ErrMemberNotFound, "NOT FOUND"},
	{services.ErrChatNotFound, "NOT FOUND"},
	{services.ErrClassNotFound, "NOT FOUND"},
	{services.ErrInvalidCredentials, "INVALID PASSWORD"},
	{services.ErrSelfChat, "NOT YOURSELF"},
	{services.ErrAlreadyChatting, "ALREADY CHATTING"},
	{services.ErrNotParticipant, "NOT IN CHAT"},
	{services.ErrEmptyMessage, "EMPTY MESSAGE"},
	{services.ErrMessageTooLong, "TOO LONG"},
	{services.ErrRateLimited, "SLOW DOWN"},
	{services.ErrAlreadyEnrolled, "YOU'RE ALREADY IN THE CLASS"},
	{codec.ErrMalformedList, "CORRUPT RECORD"},
	{codec.ErrMalformedLog, "CORRUPT RECORD"},
	{domain.ErrMalformedDate, "CORRUPT RECORD"},
	{repo.ErrWriteConflict, "BUSY, TRY AGAIN"},
	{seed.ErrUnknownMember, "BAD FIXTURE"},
}

// Label returns the CLI label for err, "ERROR" when nothing matches.
func Label(err error) string {
	if err == nil {
		return "OK"
	}
	for _, l := range labels {
		if errors.Is(err, l.err) {
			return l.label
		}
	}
	return "ERROR"
}
