package record

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-asset-scan-service/internal/reconcile"
)

var (
	// ErrBusy is returned when another commit, sync or delete holds the store.
	ErrBusy = errors.New("record store busy: another operation is in progress")
	// ErrStoreIO means the durable store could not be read or written.
	ErrStoreIO = errors.New("record store unavailable")
)

// RejectedError ends a scan without persisting anything: either the payload
// did not parse (Cause set) or validation returned a blocking verdict.
type RejectedError struct {
	Verdict reconcile.Verdict
	Cause   error
}

func (e *RejectedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scan rejected: %v", e.Cause)
	}
	return fmt.Sprintf("scan rejected: %s", e.Verdict.Reason())
}

func (e *RejectedError) Unwrap() error { return e.Cause }
