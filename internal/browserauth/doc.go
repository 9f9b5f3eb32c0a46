// Package browserauth implements the browser-based OAuth authorization flow
// for nimbus.
//
// Service.Authenticate opens a localhost redirect listener on the app's
// built-in server port, launches the system browser at the provider's
// authorization endpoint (Authorization Code Grant with PKCE), waits for the
// redirect carrying the authorization code, and exchanges it for
// Credentials. The flow can be abandoned at any point via Service.Cancel.
package browserauth
