package oauthlink

// Phase is a step of the authorization-code round trip.
// Real progress lives in the browser session; a Phase only describes where one request ended.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseRedirecting      Phase = "redirecting"
	PhaseAwaitingCallback Phase = "awaiting_callback"
	PhaseVerifying        Phase = "verifying"
	PhaseExchanging       Phase = "exchanging"
	PhaseFetchingProfile  Phase = "fetching_profile"
	PhaseLinking          Phase = "linking"
	PhaseDone             Phase = "done"
	PhaseError            Phase = "error"
)

func (p Phase) String() string {
	return string(p)
}

// Terminal reports whether no further transition is possible within the request.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}
