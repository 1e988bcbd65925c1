package drift

// Kind tags a point in a Frame.
type Kind string

const (
	KindContext    Kind = "context"
	KindTrajectory Kind = "trajectory"
)

// Point is one projected word or period position.
type Point struct {
	Label  string  `json:"label"`
	Period string  `json:"period,omitempty"`
	Kind   Kind    `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Edge connects Trajectory[From] to Trajectory[To].
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Frame is the 2D picture of a word's movement across periods.
//
// Context holds the neighbor words, positioned with reference-space vectors. Trajectory holds
// the base word once per period in which it occurs, in chronological order. Both share one
// coordinate system.
type Frame struct {
	Baseword          string     `json:"baseword"`
	ReferenceID       string     `json:"reference_id"`
	Context           []Point    `json:"context"`
	Trajectory        []Point    `json:"trajectory"`
	Edges             []Edge     `json:"edges"`
	SkippedPeriods    []string   `json:"skipped_periods,omitempty"`
	ExplainedVariance [2]float64 `json:"explained_variance"`
}

// Periods returns the periods that contributed a trajectory point.
func (f *Frame) Periods() []string {
	out := make([]string, len(f.Trajectory))
	for i, p := range f.Trajectory {
		out[i] = p.Period
	}
	return out
}

// TrajectoryLabel is the annotation used for the base word in a given period.
func TrajectoryLabel(baseword, period string) string {
	return baseword + "-" + period
}
