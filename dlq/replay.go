package dlq

import (
	"context"
	"errors"

	"github.com/xraph/runlock/id"
)

// ErrNoRedispatch is returned by Replay when no redispatch callback was
// configured on the service.
var ErrNoRedispatch = errors.New("dlq: no redispatch function configured")

// Replay re-executes the job recorded in a DLQ entry and marks the entry
// as replayed. The entry itself is retained for audit — replay stamps it
// rather than removing it.
func (s *Service) Replay(ctx context.Context, jobID string, executionID id.ExecutionID) (*Entry, error) {
	if s.redispatch == nil {
		return nil, ErrNoRedispatch
	}

	entry, err := s.store.GetDLQ(ctx, jobID, executionID)
	if err != nil {
		return nil, err
	}

	if err := s.redispatch(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.store.MarkReplayedDLQ(ctx, jobID, executionID); err != nil {
		// The job already re-ran. Surface the bookkeeping error but
		// keep the entry so the caller can retry the mark.
		return entry, err
	}

	return s.store.GetDLQ(ctx, jobID, executionID)
}
