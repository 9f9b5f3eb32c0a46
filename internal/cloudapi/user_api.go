package cloudapi

import (
	"context"

	"nimbus/pkg/cloud"
)

// TokenSource supplies a currently-valid access token for outgoing requests.
// The session core binds this to its single-flight refresh queue, so callers
// of UserAPI never see raw credentials.
type TokenSource interface {
	// AccessToken returns a valid access token or an error.
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenSource returns a TokenSource that always yields the given
// token. Used during authorization, before an Authorized session exists.
func StaticTokenSource(token string) TokenSource {
	return staticTokenSource(token)
}

type staticTokenSource string

func (s staticTokenSource) AccessToken(context.Context) (string, error) {
	return string(s), nil
}

// UserAPI performs cloud API operations on behalf of an authenticated user.
// Every request obtains its token from the bound TokenSource.
type UserAPI struct {
	client *Client
	tokens TokenSource
}

// UserAPI binds the client's authenticated operations to a token source.
func (c *Client) UserAPI(tokens TokenSource) *UserAPI {
	return &UserAPI{client: c, tokens: tokens}
}

// GetUserInfo fetches the authenticated user's identity.
func (a *UserAPI) GetUserInfo(ctx context.Context) (*cloud.UserInfo, error) {
	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var info cloud.UserInfo
	if err := a.client.getJSON(ctx, a.client.frontendURL+userInfoPath, token, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUserLicenses fetches the user's license list, including entries that
// still await acceptance.
func (a *UserAPI) GetUserLicenses(ctx context.Context) ([]cloud.License, error) {
	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var licenses []cloud.License
	if err := a.client.getJSON(ctx, a.client.frontendURL+userLicensesPath, token, &licenses); err != nil {
		return nil, err
	}
	return licenses, nil
}
