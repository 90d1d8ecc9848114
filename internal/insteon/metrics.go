package insteon

// Recorder receives operation outcomes for metrics.
// The influxdb package provides the production implementation.
type Recorder interface {
	// RecordLinkUpdate is called once per acknowledged or failed record write/delete.
	RecordLinkUpdate(endpoint Address, op string, success bool)

	// RecordRefresh is called when a link table download ends.
	RecordRefresh(endpoint Address, entries int, success bool)
}

// NoopRecorder discards all measurements.
type NoopRecorder struct{}

func (NoopRecorder) RecordLinkUpdate(Address, string, bool) {}
func (NoopRecorder) RecordRefresh(Address, int, bool)       {}
