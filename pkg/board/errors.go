package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

var (
	// ErrSameStage is returned when a card is dropped on the stage it is already in.
	// Nothing was mutated and no request was sent.
	ErrSameStage = errors.New("card is already in that stage")
	// ErrCardNotFound is returned when the card id is not on the board
	ErrCardNotFound = errors.New("card not found on the board")
	// ErrUnknownStage is returned for a target outside the stage set
	ErrUnknownStage = errors.New("unknown stage")
	// ErrNotLoaded is returned by mutations before the first successful load
	ErrNotLoaded = errors.New("pipeline has not been loaded yet")
	// ErrStale is returned when a response was superseded by a newer request
	// and therefore not applied
	ErrStale = errors.New("response superseded by a newer request")
	// ErrTooManyCards is returned when a bulk move exceeds the backend limit
	ErrTooManyCards = errors.New("too many cards for one bulk move")
)

// TransitionError reports a stage change the backend did not accept. By the
// time it is returned the board has been resynchronized from the backend,
// unless ReloadErr says otherwise.
type TransitionError struct {
	CardIDs   []int
	Target    models.Stage
	Err       error
	ReloadErr error
}

func (e *TransitionError) Error() string {
	ids := make([]string, len(e.CardIDs))
	for i, id := range e.CardIDs {
		ids[i] = fmt.Sprint(id)
	}
	msg := fmt.Sprintf("moving card %s to %s failed: %v", strings.Join(ids, ","), e.Target, e.Err)
	if e.ReloadErr != nil {
		msg += fmt.Sprintf(" (resync also failed: %v)", e.ReloadErr)
	}
	return msg
}

func (e *TransitionError) Unwrap() []error {
	if e.ReloadErr != nil {
		return []error{e.Err, e.ReloadErr}
	}
	return []error{e.Err}
}

// Resynced reports whether the board was reloaded after the failure
func (e *TransitionError) Resynced() bool {
	return e.ReloadErr == nil
}
