// Package auth holds the broker credential and persists renewed credentials.
package auth

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExpiryGrace is how long before expiry a credential is treated as expired
const ExpiryGrace = 5 * time.Minute

// Kind distinguishes the two credential shapes
type Kind string

const (
	// KindRefreshToken holds only a refresh token, as supplied on first run
	KindRefreshToken Kind = "refresh_token"
	// KindFull holds the full token set returned by the broker
	KindFull Kind = "full"
)

// Credential is either a bare refresh token or a full token set. Fields other
// than Kind and Refresh are only meaningful for KindFull.
type Credential struct {
	Kind        Kind      `json:"kind"`
	Refresh     string    `json:"refreshToken"`
	AccessToken string    `json:"accessToken,omitempty"`
	APIServer   string    `json:"apiServer,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	IsDemo      bool      `json:"isDemo,omitempty"`
}

// FromRefreshToken builds a refresh-only credential
func FromRefreshToken(token string) Credential {
	return Credential{Kind: KindRefreshToken, Refresh: token}
}

// Full builds a full credential
func Full(refresh, access, apiServer string, expiresAt time.Time, isDemo bool) Credential {
	return Credential{
		Kind:        KindFull,
		Refresh:     refresh,
		AccessToken: access,
		APIServer:   apiServer,
		ExpiresAt:   expiresAt,
		IsDemo:      isDemo,
	}
}

// RefreshToken returns the token to renew with
func (c Credential) RefreshToken() string {
	switch c.Kind {
	case KindRefreshToken:
		return c.Refresh
	case KindFull:
		return c.Refresh
	default:
		panic(fmt.Sprintf("auth: unknown credential kind %q", c.Kind))
	}
}

// IsExpired reports whether the credential must be renewed before use at now
func (c Credential) IsExpired(now time.Time) bool {
	switch c.Kind {
	case KindRefreshToken:
		return true
	case KindFull:
		return c.ExpiresAt.Sub(now) <= ExpiryGrace
	default:
		panic(fmt.Sprintf("auth: unknown credential kind %q", c.Kind))
	}
}

// Validate checks the credential carries what its kind requires
func (c Credential) Validate() error {
	switch c.Kind {
	case KindRefreshToken:
		if c.Refresh == "" {
			return fmt.Errorf("refresh token credential is empty")
		}
	case KindFull:
		if c.Refresh == "" || c.AccessToken == "" || c.APIServer == "" {
			return fmt.Errorf("full credential is missing refresh token, access token or api server")
		}
	default:
		return fmt.Errorf("unknown credential kind %q", c.Kind)
	}
	return nil
}

// UnmarshalJSON decodes a credential and rejects unknown kinds
func (c *Credential) UnmarshalJSON(data []byte) error {
	type raw Credential
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if err := Credential(r).Validate(); err != nil {
		return err
	}
	*c = Credential(r)
	return nil
}
