package domain

// Actor identifies who triggered a financial operation. All fields are optional;
// callers resolve them before reaching the ledger.
type Actor struct {
	UserID    string `json:"userID,omitempty"`
	UserType  string `json:"userType,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	SessionID string `json:"sessionID,omitempty"`
}

// SystemActor is used for entries written without a human caller.
var SystemActor = Actor{UserID: "system", UserType: "SYSTEM"}

// ID returns the user id or "system" when unknown.
func (a Actor) ID() string {
	if a.UserID == "" {
		return SystemActor.UserID
	}
	return a.UserID
}
