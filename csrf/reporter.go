package csrf

// Reporter receives guard outcomes, e.g. to feed metrics.
// Implementations must be safe for concurrent use.
type Reporter interface {
	TokenIssued()
	RequestAllowed(method string)
	RequestRejected(method, code string)
}

type nopReporter struct{}

func (nopReporter) TokenIssued()                   {}
func (nopReporter) RequestAllowed(string)          {}
func (nopReporter) RequestRejected(string, string) {}
