// Package api exposes the wallet assistant over HTTP: chat turns, transfer
// previews, standalone guardian validation, intent parsing, the supported
// chain list and the preview audit trail.
package api
