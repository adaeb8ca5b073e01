package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator mints UUIDv4 identifiers. It doubles as the voter session
// issuer: a session is nothing more than an opaque random id.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (g UUIDGenerator) NewSession(ctx context.Context) (string, error) {
	return g.NewID(ctx)
}
