package auth

import (
	"context"

	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"

	"github.com/tidwall/gjson"
)

type remoteRequest struct {
	Token    string `json:"token"`
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
}

// -----------------------------------------------------------------------------
// RemoteValidator delegates the decision to an HTTP endpoint which answers
// {"valid": bool, "tenantId": "...", "userId": "..."}.
// -----------------------------------------------------------------------------

type RemoteValidator struct {
	url     string
	network interfaces.INetworkManager
}

func NewRemoteValidator(url string, nm interfaces.INetworkManager) *RemoteValidator {
	return &RemoteValidator{url: url, network: nm}
}

// -----------------------------------------------------------------------------

func (v *RemoteValidator) Validate(ctx context.Context, token, tenantID, userID string) (interfaces.Identity, error) {
	body, err := v.network.PostJSON(ctx, v.url, remoteRequest{Token: token, TenantID: tenantID, UserID: userID})
	if err != nil {
		return interfaces.Identity{}, helpers.NewAuthenticationError("credential service unavailable", err)
	}

	if !gjson.ValidBytes(body) {
		return interfaces.Identity{}, helpers.NewAuthenticationError("malformed credential service response", nil)
	}
	res := gjson.ParseBytes(body)
	if !res.Get("valid").Bool() {
		reason := res.Get("reason").String()
		if reason == "" {
			reason = "rejected by credential service"
		}
		return interfaces.Identity{}, helpers.NewAuthenticationError(reason, nil)
	}

	return interfaces.Identity{
		TenantID: firstNonEmpty(res.Get("tenantId").String(), tenantID),
		UserID:   firstNonEmpty(res.Get("userId").String(), userID),
	}, nil
}
