// Package common contains shared constants and sentinel errors used across
// the client layers.
package common

const (
	// AuthorizationHeader carries "Bearer <token>" on outbound requests.
	AuthorizationHeader = "Authorization"

	// RequestIDHeader carries a per-request identifier for backend log correlation.
	RequestIDHeader = "X-Request-ID"

	// MinTokenLength is the shortest token accepted before any network call.
	MinTokenLength = 10

	// TokenKey is the metadata key under which the bearer token is persisted.
	TokenKey = "auth_token"

	// TokenValidatedAtKey records when the persisted token last passed /info.
	TokenValidatedAtKey = "auth_validated_at"
)
