package auth

import (
	"fmt"
	"strings"
	"time"

	"metrics-broker/src/interfaces"
	"metrics-broker/src/models"
)

const jwtLeeway = 30 * time.Second

// NewValidator builds the credential validator selected by cfg.Auth.Mode
func NewValidator(cfg *models.MConfig, nm interfaces.INetworkManager) (interfaces.ICredentialValidator, error) {
	switch strings.ToLower(cfg.Auth.Mode) {
	case "", "static":
		return NewStaticValidator(cfg.Auth.Tokens), nil
	case "jwt":
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("jwt auth requires a secret")
		}
		return NewJWTValidator(cfg.Auth.JWTSecret, jwtLeeway), nil
	case "remote":
		if nm == nil {
			return nil, fmt.Errorf("remote auth requires a network manager")
		}
		return NewRemoteValidator(cfg.Auth.RemoteURL, nm), nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", cfg.Auth.Mode)
	}
}
