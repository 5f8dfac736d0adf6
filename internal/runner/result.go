package runner

// Result holds the output of a command execution.
type Result struct {
	RunID     string // unique identifier for this invocation
	ExitCode  int    // process exit code
	Stdout    []byte // captured stdout (may be truncated)
	Stderr    []byte // captured stderr (may be truncated)
	Truncated bool   // true if either stream exceeded the size cap
}

// Success reports whether the process exited with status zero.
// Output content plays no part in the decision.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}
