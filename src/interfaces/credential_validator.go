package interfaces

import (
	"context"
)

// Identity is what a successful authentication resolves to
type Identity struct {
	TenantID string
	UserID   string
}

// -----------------------------------------------------------------------------
// ICredentialValidator checks a client token against the tenant/user it claims.
// -----------------------------------------------------------------------------

type ICredentialValidator interface {

	// Validate returns the accepted identity, or an error when the token is rejected.
	Validate(ctx context.Context, token, tenantID, userID string) (Identity, error)
}
