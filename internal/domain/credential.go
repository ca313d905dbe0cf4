package domain

// Credential is the vendor session credential produced by the two-phase
// login handshake. It lives in memory for a single pipeline run and is
// never persisted.
type Credential struct {
	AppToken string
	UserID   string
}
