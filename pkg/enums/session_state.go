package enums

// SessionState gates what a bearer of a session token may do. A session
// in StatePending2FA has passed the password check but must still present
// a time-based code before any authenticated route is reachable.
type SessionState string

const (
	SessionStatePending2FA    SessionState = "pending_2fa"
	SessionStateAuthenticated SessionState = "authenticated"
)

func (s SessionState) IsValid() bool {
	switch s {
	case SessionStatePending2FA, SessionStateAuthenticated:
		return true
	}
	return false
}
