package rollup

// Status is the band a completion percentage falls into.
type Status string

const (
	StatusOnTrack  Status = "on_track"
	StatusAtRisk   Status = "at_risk"
	StatusOffTrack Status = "off_track"
)

// Thresholds holds the lower bounds of the on-track and at-risk bands as
// fractions in [0,1]. They are defined once here and reused everywhere a
// status is derived; callers customize them through configuration rather
// than by re-deriving bands inline.
type Thresholds struct {
	OnTrack float64
	AtRisk  float64
}

// DefaultThresholds are the stock bands: >= 70% on track, >= 40% at risk,
// otherwise off track.
var DefaultThresholds = Thresholds{OnTrack: 0.70, AtRisk: 0.40}

// Classify maps a percentage to its status band. Boundary values belong to
// the higher band.
func (t Thresholds) Classify(percent float64) Status {
	if percent >= t.OnTrack {
		return StatusOnTrack
	}
	if percent >= t.AtRisk {
		return StatusAtRisk
	}
	return StatusOffTrack
}
