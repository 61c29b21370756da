package entity

// VerdictSeverity grades a single compatibility check.
type VerdictSeverity string

const (
	SeverityPass    VerdictSeverity = "PASS"
	SeverityWarning VerdictSeverity = "WARNING"
	SeverityFail    VerdictSeverity = "FAIL"
	// SeverityUnknown means the data needed for the check is missing.
	// It is a valid outcome, not an error, and never blocks a selection.
	SeverityUnknown VerdictSeverity = "UNKNOWN"
)

// CompatibilityVerdict is the outcome of one constraint check between a
// candidate and an already-selected component (or the session budget).
type CompatibilityVerdict struct {
	Check     string
	Severity  VerdictSeverity
	Reason    string
	Candidate string // candidate component name
	Against   string // selected component the check ran against, if any
}
