package metrics

// NoopMetrics discards every recording. Used in tests and when metrics are
// disabled by configuration.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

func NewNoopMetrics() *NoopMetrics { return &NoopMetrics{} }

func (n *NoopMetrics) RecordLogin(method, outcome string)                        {}
func (n *NoopMetrics) RecordUserProvisioned(method string)                       {}
func (n *NoopMetrics) RecordGroupSyncFailure(method string)                      {}
func (n *NoopMetrics) RecordAvatarFetchFailure()                                 {}
func (n *NoopMetrics) RecordLogout(method string)                                {}
func (n *NoopMetrics) RecordSessionInvalidated(reason string)                    {}
func (n *NoopMetrics) RecordHTTPRequest(method, path, status string)             {}
func (n *NoopMetrics) ObserveHTTPRequestDuration(method, path string, s float64) {}
