// Package cloudapi implements the HTTP client for the cloud REST API.
//
// The client is split along authentication lines, mirroring the API the
// session core consumes:
//
//   - Client serves anonymous operations: OAuth provider discovery (cached,
//     with concurrent fetches deduplicated via singleflight) and
//     refresh-token exchange.
//   - UserAPI serves authenticated operations (user info, licenses); every
//     request pulls its token from a TokenSource so the caller never touches
//     raw credentials.
//
// Errors are classified for the session core's failure handling: transport
// failures wrap ErrOffline (recoverable, never a logout), explicit server
// rejections surface as *ResponseError (IsAuthError marks the ones that
// force a logout).
package cloudapi
