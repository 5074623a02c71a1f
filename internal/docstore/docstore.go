// Package docstore is the remote per-account document store boundary. The
// contract is deliberately coarse: read or write one whole collection snapshot
// by (account id, collection name). No partial or delta writes exist.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied marks an authorization rejection from the remote
	// store. The syncer treats it as sticky for the whole account.
	ErrPermissionDenied = errors.New("permission denied")

	ErrNotFound = errors.New("document not found")
)

type Store interface {
	ReadCollection(ctx context.Context, accountID string, collection string) ([]byte, error)
	WriteCollection(ctx context.Context, accountID string, collection string, payload []byte) error
}
