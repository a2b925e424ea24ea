package model

// FetchState is a step of an authenticated fetch.
//
//	Unauthenticated -> Authenticating -> Fetching -> Succeeded
//	Fetching -> ReauthRequired -> Authenticating (bounded) | Failed
type FetchState int

// Constants for FetchState
const (
	Unauthenticated FetchState = iota
	Authenticating
	Fetching
	ReauthRequired
	Succeeded
	Failed

	StateUnauthenticated = "unauthenticated"
	StateAuthenticating  = "authenticating"
	StateFetching        = "fetching"
	StateReauthRequired  = "reauth_required"
	StateSucceeded       = "succeeded"
	StateFailed          = "failed"
)

func (s FetchState) String() string {
	return [...]string{
		StateUnauthenticated,
		StateAuthenticating,
		StateFetching,
		StateReauthRequired,
		StateSucceeded,
		StateFailed,
	}[s]
}

// Terminal reports whether no further transition follows.
func (s FetchState) Terminal() bool {
	return s == Succeeded || s == Failed
}
