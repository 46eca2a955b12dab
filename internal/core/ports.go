package core

import (
	"context"
)

// MailQueue is the hold queue backend
type MailQueue interface {
	// ListIDs returns the ids of every held message
	ListIDs(ctx context.Context) ([]string, error)

	// Exists reports whether a message is still held
	Exists(ctx context.Context, id string) (bool, error)

	// Fetch returns the raw message; ErrMessageNotFound if it vanished
	Fetch(ctx context.Context, id string) ([]byte, error)

	// Delete removes a message from the hold queue
	Delete(ctx context.Context, id string) error
}

// FileSink appends one line to a list file
type FileSink interface {
	Append(line, path string) error
}

// DBSink runs an insert statement with named parameters
type DBSink interface {
	Insert(ctx context.Context, statement string, params map[string]string) error
}

// Display renders a held message for a human
type Display interface {
	Render(ctx context.Context, msg *PendingMessage) error
}

// Releaser hands a held message back to delivery
type Releaser interface {
	Release(ctx context.Context, msg *PendingMessage) error
}

// CacheStore persists the processed-id cache between runs
type CacheStore interface {
	// Load returns the stored ids, most recent first
	Load(ctx context.Context) ([]string, error)

	// Save replaces the stored ids
	Save(ctx context.Context, ids []string) error
}
