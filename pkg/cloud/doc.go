// Package cloud defines the shared value types exchanged between the nimbus
// session core and the cloud service: immutable Credentials, user identity,
// licenses, and OAuth provider metadata.
//
// Credentials are deliberately constructor-only. Refreshing a session never
// mutates an existing value; the refresh processor adopts a new one. A
// Credentials value without an access token (RefreshOnlyCredentials) marks a
// session that survived an offline refresh and can be retried later.
package cloud
