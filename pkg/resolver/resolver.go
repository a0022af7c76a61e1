// Package resolver defines the network collaborator contract for batched
// document lookup, and an HTTP client implementation against the glyphd
// resolution service.
package resolver

import (
	"context"

	"github.com/marmos91/glyphcache/pkg/document"
)

// MaxPerRequest is the largest number of ids one batch call may carry.
const MaxPerRequest = 100

// Resolver resolves document ids to records in one batched network call.
//
// The call takes up to MaxPerRequest ids and returns zero or more resolved
// records; ids without a record are simply absent from the result. Failure
// surfaces as a single error with no partial results assumed.
type Resolver interface {
	Resolve(ctx context.Context, ids []uint64) ([]document.Document, error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, ids []uint64) ([]document.Document, error)

// Resolve implements Resolver.
func (f Func) Resolve(ctx context.Context, ids []uint64) ([]document.Document, error) {
	return f(ctx, ids)
}
