package auth

import (
	"context"
	"crypto/subtle"

	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/models"
)

// -----------------------------------------------------------------------------
// StaticValidator accepts tokens listed in the configuration.
// -----------------------------------------------------------------------------

type StaticValidator struct {
	grants []models.MTokenGrant
}

func NewStaticValidator(grants []models.MTokenGrant) *StaticValidator {
	cp := make([]models.MTokenGrant, 0, len(grants))
	for _, g := range grants {
		if g.Token != "" {
			cp = append(cp, g)
		}
	}
	return &StaticValidator{grants: cp}
}

// -----------------------------------------------------------------------------

// Validate finds a grant for token. A grant with an empty tenant or user
// accepts whatever the client presents for that field.
func (v *StaticValidator) Validate(ctx context.Context, token, tenantID, userID string) (interfaces.Identity, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Identity{}, err
	}

	for _, g := range v.grants {
		if subtle.ConstantTimeCompare([]byte(g.Token), []byte(token)) != 1 {
			continue
		}
		if g.TenantID != "" && g.TenantID != tenantID {
			continue
		}
		if g.UserID != "" && g.UserID != userID {
			continue
		}
		return interfaces.Identity{
			TenantID: firstNonEmpty(tenantID, g.TenantID),
			UserID:   firstNonEmpty(userID, g.UserID),
		}, nil
	}
	return interfaces.Identity{}, helpers.NewAuthenticationError("token not recognized", nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
