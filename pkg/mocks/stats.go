package mocks

// StaticStats is a fixed bundler.Stats for tests that only care about the
// outcome, not the calls made on it
type StaticStats struct {
	Errors bool
	Report string
}

// HasErrors implements bundler.Stats
func (s StaticStats) HasErrors() bool { return s.Errors }

// String implements bundler.Stats
func (s StaticStats) String() string { return s.Report }
