package schedule

// RelaxationPolicy counts matchup-ceiling rejections and decides when the
// search should ease off by raising the ceiling.
type RelaxationPolicy struct {
	Threshold int
	count     int
}

// RecordViolation notes one matchup-ceiling rejection.
func (p *RelaxationPolicy) RecordViolation() {
	p.count++
}

// ShouldRelax reports whether the threshold has been reached, resetting the
// counter when it has.
func (p *RelaxationPolicy) ShouldRelax() bool {
	if p.Threshold <= 0 || p.count < p.Threshold {
		return false
	}
	p.count = 0
	return true
}

// Pending returns the rejections recorded since the last relaxation.
func (p *RelaxationPolicy) Pending() int {
	return p.count
}
