package segment

// FailurePolicy declares how a capability behaves once oracle retries are
// exhausted. Segmentation passes propagate because there is no safe default
// partition; opinion detection degrades because "no opinion" is one.
type FailurePolicy int

const (
	// Propagate surfaces exhausted oracle retries as a fatal error.
	Propagate FailurePolicy = iota
	// DegradeToDefault substitutes a zero-confidence safe default.
	DegradeToDefault
)

func (p FailurePolicy) String() string {
	switch p {
	case Propagate:
		return "propagate"
	case DegradeToDefault:
		return "degrade_to_default"
	default:
		return "unknown"
	}
}
