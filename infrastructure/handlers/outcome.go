package handlers

// Outcome tells the per-connection pipeline what to do with the stream
// after a handler returns with a nil error. It has no meaning when the
// handler returns a non-nil error: the pipeline's error reply policy
// (§4.8) governs disposal in that case instead.
type Outcome int

const (
	// DisposeGraceful ends a non-reusable stream with a clean shutdown
	// sequence, or, on a stream implementing application.ReusableClientStream,
	// hands it back to the host for another exchange first and only
	// disposes once reuse is exhausted. Hello and UdpChannel return this.
	DisposeGraceful Outcome = iota
	// DisposeUngraceful ends the stream immediately, no response body, and
	// never offers it back for reuse. Bye and every error path use this.
	DisposeUngraceful
	// HandedOff means the handler transferred ownership of the stream to
	// the session manager; the pipeline must not read, write, or dispose
	// it again.
	HandedOff
)
