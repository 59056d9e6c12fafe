package syncengine

// Status is the one user-facing label derived from session state, shown by
// the surrounding UI (e.g. a header badge).
type Status string

const (
	StatusConnecting   Status = "Connecting"
	StatusCached       Status = "Cached"
	StatusSaved        Status = "Saved"
	StatusSaving       Status = "Saving"
	StatusDisconnected Status = "Disconnected"
	StatusNoOffline    Status = "No offline support"
	StatusError        Status = "Error"
	StatusClosed       Status = "Closed"
)

type StatusInput struct {
	Phase             Phase
	Pending           int
	HasSnapshot       bool
	RetriesExhausted  bool
	StoreDegraded     bool
	RehydrationFailed bool
}

// ProjectStatus is a pure function of session state, so a given internal
// state always maps to the same label. Precedence: unrecoverable error,
// terminal close, exhausted retries, then the connection phase. A degraded
// local store is reported distinctly and never conflated with Disconnected.
func ProjectStatus(in StatusInput) Status {
	switch {
	case in.RehydrationFailed:
		return StatusError
	case in.Phase == PhaseClosed:
		return StatusClosed
	case in.RetriesExhausted:
		return StatusDisconnected
	case in.Phase == PhaseHydrating && in.HasSnapshot:
		return StatusCached
	case in.Pending > 0 && (in.Phase == PhaseLive || in.Phase == PhaseReconnecting || in.Phase == PhaseHydrating):
		return StatusSaving
	case in.Phase == PhaseLive && in.StoreDegraded:
		return StatusNoOffline
	case in.Phase == PhaseLive:
		return StatusSaved
	default:
		return StatusConnecting
	}
}
