// Package config loads the host configuration for nimbus from a per-user
// YAML file, applying built-in defaults for anything unset.
//
// The configuration covers what the session core needs from its host: the
// cloud frontend URL, the local callback port, the license-acceptance gate
// flag, and the authorization expiration timeout.
package config
