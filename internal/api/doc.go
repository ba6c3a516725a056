// Package api exposes the daemon's HTTP control surface: queue inspection,
// shot retry and skip, and episode assembly triggers. The surface binds to
// localhost by default and authenticates with a bearer token when one is
// configured.
package api
