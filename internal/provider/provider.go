package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/webmail/internal/model"
)

// AuthError indicates that authentication has failed or expired for a
// mail provider. It is returned by drivers when the provider rejects the
// stored credentials.
type AuthError struct {
	Driver  DriverType
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Driver, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// DriverType identifies the kind of mail provider driver.
type DriverType string

const (
	DriverGmail DriverType = "gmail"
	DriverIMAP  DriverType = "imap"
)

// Canonical folder names used across drivers. Each driver maps these to
// its own label or mailbox naming.
const (
	FolderInbox = "inbox"
	FolderSent  = "sent"
	FolderDraft = "draft"
	FolderTrash = "trash"
)

// Provider defines the contract that every mail driver must implement.
// Driver-specific response shapes are normalized into the model types at
// this boundary and never leak past it.
type Provider interface {
	// Type returns the driver type identifier.
	Type() DriverType

	// ValidateConnection verifies credentials and connectivity.
	// Returns a human-readable status message on success.
	ValidateConnection(ctx context.Context) (string, error)

	// ListThreads retrieves one page of thread summaries from a folder.
	// An empty pageToken starts from the beginning; the returned page's
	// NextPageToken is empty when the listing is exhausted. Listing is an
	// idempotent read: repeating a call with the same token is safe.
	ListThreads(
		ctx context.Context,
		folder, query string,
		maxResults int64,
		pageToken string,
	) (*model.ThreadPage, error)

	// GetThread retrieves the messages of a single thread. Callers that
	// fetch threads in a batch must tolerate per-call failures.
	GetThread(ctx context.Context, id string) (*model.Thread, error)

	// ListAliases returns the sending identities of the account.
	ListAliases(ctx context.Context) ([]model.Alias, error)

	// Send delivers an outgoing message.
	Send(ctx context.Context, msg *model.OutgoingMessage) error
}
