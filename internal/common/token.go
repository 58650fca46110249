package common

// ValidTokenFormat reports whether token passes the structural check applied
// before it is ever sent to the backend.
func ValidTokenFormat(token string) bool {
	return len(token) >= MinTokenLength
}

// MaskToken shortens a token for logs: the first MinTokenLength characters
// followed by "...".
func MaskToken(token string) string {
	if len(token) <= MinTokenLength {
		return token[:min(len(token), MinTokenLength/2)] + "..."
	}
	return token[:MinTokenLength] + "..."
}
