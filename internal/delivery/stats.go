package delivery

// Stats tallies how many records a destination accepted or rejected
// over the lifetime of a sink, returned from Close so callers can
// publish per-tenant metrics.
type Stats struct {
	SuccessfulRecords int
	FailedRecords     int
}

// Add folds other into s in place.
func (s *Stats) Add(other Stats) {
	s.SuccessfulRecords += other.SuccessfulRecords
	s.FailedRecords += other.FailedRecords
}
