package kanban

import (
	"errors"
	"fmt"

	"github.com/chxlky/kanban-sync/integrations"
	"github.com/chxlky/kanban-sync/internal/board"
)

var (
	// ErrValidation marks input rejected before any remote call was made.
	ErrValidation = errors.New("validation failed")
	ErrClosed     = errors.New("synchronizer is closed")
)

// Kind classifies an error returned by the Synchronizer for callers that
// report it to a user.
type Kind string

const (
	KindFetch      Kind = "fetch_failure"
	KindRemote     Kind = "remote_rejection"
	KindValidation Kind = "validation_failure"
	KindNotFound   Kind = "not_found"
	KindInvalid    Kind = "invalid_request"
	KindInternal   Kind = "internal"
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func KindOf(err error) Kind {
	var remoteErr *integrations.RemoteError
	var fetchErr *integrations.FetchError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.As(err, &remoteErr):
		return KindRemote
	case errors.As(err, &fetchErr):
		return KindFetch
	case errors.Is(err, board.ErrColumnNotFound), errors.Is(err, board.ErrTaskNotFound):
		return KindNotFound
	case errors.Is(err, board.ErrInvalidIndex), errors.Is(err, board.ErrDuplicateColumn), errors.Is(err, board.ErrDuplicateTask):
		return KindInvalid
	default:
		return KindInternal
	}
}

// Message returns the text to show a user: the remote's own message for a
// rejection, the error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var remoteErr *integrations.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Message != "" {
		return remoteErr.Message
	}
	return err.Error()
}
