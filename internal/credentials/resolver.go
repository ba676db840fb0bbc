// Package credentials resolves which entities are connected and supplies
// their API tokens to the report client.
package credentials

import (
	"context"
	"errors"
)

// ErrEntityUnresolvable indicates no usable credential exists for the entity.
var ErrEntityUnresolvable = errors.New("credentials: entity unresolvable")

// Entity is one connected accounting organisation.
type Entity struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Token is the OAuth access credential for one entity.
// Refresh scheduling is handled by the OAuth layer, not here.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Resolver is the credential capability injected into the aggregation core.
type Resolver interface {
	Resolve(ctx context.Context, entityID int64) (Token, error)
	ListEntities(ctx context.Context) ([]Entity, error)
}
