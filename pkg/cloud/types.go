package cloud

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultExpiryMargin is the default margin when checking access-token expiry.
// This accounts for clock skew and network latency.
const DefaultExpiryMargin = 30 * time.Second

// NormalizeFrontendURL normalizes a cloud frontend URL by stripping trailing
// slashes and transport-specific path suffixes. This ensures consistent
// token storage and API endpoint construction regardless of how the URL was
// entered in the IDE settings.
func NormalizeFrontendURL(frontendURL string) string {
	frontendURL = strings.TrimSuffix(frontendURL, "/")
	frontendURL = strings.TrimSuffix(frontendURL, "/api")
	return frontendURL
}

// Credentials is an immutable proof of identity against the cloud service.
// A Credentials value is never mutated in place; every refresh produces a
// new value. The zero value carries no tokens and is not usable.
type Credentials struct {
	accessToken      string
	expirationMoment time.Time
	refreshToken     string
}

// NewCredentials builds a full Credentials value from a token response.
func NewCredentials(accessToken string, expirationMoment time.Time, refreshToken string) Credentials {
	return Credentials{
		accessToken:      accessToken,
		expirationMoment: expirationMoment,
		refreshToken:     refreshToken,
	}
}

// RefreshOnlyCredentials builds a Credentials value that carries a refresh
// token but no access token. This represents "refresh succeeded at the
// protocol level but the server was unreachable for the final exchange".
func RefreshOnlyCredentials(refreshToken string) Credentials {
	return Credentials{refreshToken: refreshToken}
}

// AccessToken returns the access token if one is present and not expired
// (with DefaultExpiryMargin). The second return value reports usability.
func (c Credentials) AccessToken() (string, bool) {
	return c.AccessTokenWithMargin(DefaultExpiryMargin)
}

// AccessTokenWithMargin is AccessToken with an explicit expiry margin.
func (c Credentials) AccessTokenWithMargin(margin time.Duration) (string, bool) {
	if c.accessToken == "" {
		return "", false
	}
	if !c.expirationMoment.IsZero() && !time.Now().Add(margin).Before(c.expirationMoment) {
		return "", false
	}
	return c.accessToken, true
}

// RefreshToken returns the refresh token. The second return value is false
// when no refresh token is present.
func (c Credentials) RefreshToken() (string, bool) {
	return c.refreshToken, c.refreshToken != ""
}

// ExpirationMoment returns when the access token expires. The zero time
// means the token does not expire.
func (c Credentials) ExpirationMoment() time.Time {
	return c.expirationMoment
}

// ToOAuth2Token converts the Credentials to an oauth2.Token for interop
// with libraries that consume the standard token type.
func (c Credentials) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.accessToken,
		RefreshToken: c.refreshToken,
		TokenType:    "Bearer",
		Expiry:       c.expirationMoment,
	}
}

// UserInfo holds the identity of the authenticated user as reported by the
// cloud service.
type UserInfo struct {
	// ID is the unique user identifier.
	ID string `json:"id"`

	// Email is the user's email address.
	Email string `json:"email,omitempty"`

	// Name is the user's display name.
	Name string `json:"name,omitempty"`
}

// License describes a single license entry returned by the cloud service.
type License struct {
	// ID is the license identifier.
	ID string `json:"id"`

	// Name is the human-readable license name.
	Name string `json:"name,omitempty"`

	// Missing reports whether the user still has to accept this license.
	Missing bool `json:"missing"`
}

// HasMissingLicense reports whether any license in the list still awaits
// acceptance. An empty list means nothing is missing.
func HasMissingLicense(licenses []License) bool {
	for _, l := range licenses {
		if l.Missing {
			return true
		}
	}
	return false
}

// OAuthProviderData describes the OAuth provider advertised by the cloud
// service for browser-based authorization.
type OAuthProviderData struct {
	// AuthURL is the authorization endpoint the browser is sent to.
	AuthURL string `json:"auth_url"`

	// TokenURL is the endpoint where authorization codes are exchanged.
	TokenURL string `json:"token_url"`

	// ClientID identifies the IDE client to the provider.
	ClientID string `json:"client_id"`

	// Scopes are the scopes requested during authorization.
	Scopes []string `json:"scopes,omitempty"`
}
