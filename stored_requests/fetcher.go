package stored_requests

import (
	"context"
	"encoding/json"
	"fmt"
)

// AccountFetcher knows how to fetch the host configuration of a publisher account.
//
// Implementations must be safe for concurrent access by multiple goroutines.
type AccountFetcher interface {
	// FetchAccount returns the stored account merged over accountDefaultJSON.
	// An unknown account yields a NotFoundError.
	FetchAccount(ctx context.Context, accountDefaultJSON json.RawMessage, accountID string) (json.RawMessage, []error)
}

// NotFoundError is an error type to flag that an ID was not found by the Fetcher.
// Callers use it to tell a missing account apart from a broken one.
type NotFoundError struct {
	ID       string
	DataType string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf(`Stored %s with ID="%s" not found.`, e.DataType, e.ID)
}
