package telemetry

// FilterParams configures the scalar Kalman filter used to smooth speed.
// R is the process noise and Q the measurement noise; A, B and C are the
// state-transition, control and measurement coefficients.
type FilterParams struct {
	R float64
	Q float64
	A float64
	B float64
	C float64
}

// DefaultFilterParams is a direct-observation model tuned for GPS speed in km/h.
func DefaultFilterParams() FilterParams {
	return NewFilterParams(0.01, 3)
}

func NewFilterParams(r, q float64) FilterParams {
	return FilterParams{R: r, Q: q, A: 1, B: 0, C: 1}
}

// FilterState is the complete memory of the filter. The zero value is an
// uninitialized filter.
type FilterState struct {
	Estimate    float64
	Covariance  float64
	Initialized bool
}

// Step feeds one observation with no control input.
func Step(p FilterParams, s FilterState, z float64) (FilterState, float64) {
	return StepControl(p, s, z, 0)
}

// StepControl feeds observation z with control input u and returns the new
// state along with the estimate.
func StepControl(p FilterParams, s FilterState, z, u float64) (FilterState, float64) {
	if !s.Initialized {
		s.Estimate = z / p.C
		s.Covariance = p.Q / (p.C * p.C)
		s.Initialized = true
		return s, s.Estimate
	}

	predX := p.A*s.Estimate + p.B*u
	predCov := p.A*p.A*s.Covariance + p.R

	gain := predCov * p.C / (p.C*p.C*predCov + p.Q)
	s.Estimate = predX + gain*(z-p.C*predX)
	s.Covariance = predCov - gain*p.C*predCov
	return s, s.Estimate
}

// SpeedFilter owns one FilterState. It is not safe for concurrent use.
type SpeedFilter struct {
	params FilterParams
	state  FilterState
}

func NewSpeedFilter(p FilterParams) *SpeedFilter {
	return &SpeedFilter{params: p}
}

func (f *SpeedFilter) Update(z float64) float64 {
	var est float64
	f.state, est = Step(f.params, f.state, z)
	return est
}

func (f *SpeedFilter) State() FilterState {
	return f.state
}

func (f *SpeedFilter) Reset() {
	f.state = FilterState{}
}
