package auth

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeFailure
	OutcomeDenied
	OutcomeLogout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeDenied:
		return "denied"
	case OutcomeLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of the pipeline for one request. It is
// produced once and consumed by exactly one outcome handler.
type Outcome struct {
	Kind OutcomeKind
	// Principal is set for Success, Denied and (when known) Logout.
	Principal *Principal
	// Reason is set for Failure.
	Reason error
	// Required is the unmet requirement for Denied.
	Required Requirement
	// Path is the originally requested path.
	Path string
	// RedirectTo is the validated post-login destination for Success, if any.
	RedirectTo string
	// Method is how the principal authenticated (Success only).
	Method AuthMethod
}

// Success builds a success outcome.
func Success(p Principal, method AuthMethod, redirectTo string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Principal: &p, Method: method, RedirectTo: redirectTo}
}

// Failure builds a failure outcome.
func Failure(reason error) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}

// Denied builds a denial outcome.
func Denied(p Principal, required Requirement, path string) Outcome {
	return Outcome{Kind: OutcomeDenied, Principal: &p, Required: required, Path: path}
}

// LoggedOut builds a logout outcome; p may be nil when no session was active.
func LoggedOut(p *Principal) Outcome {
	return Outcome{Kind: OutcomeLogout, Principal: p}
}
