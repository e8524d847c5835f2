package telemetry

// SpeedPolicy chooses the effective speed for a sample from the device-reported
// speed (0 when absent) and the speed derived from the position delta.
type SpeedPolicy interface {
	Select(deviceMps, calculatedMps float64) float64
}

type SpeedPolicyFunc func(deviceMps, calculatedMps float64) float64

func (f SpeedPolicyFunc) Select(deviceMps, calculatedMps float64) float64 {
	return f(deviceMps, calculatedMps)
}

// UnderReportPolicy trusts the device unless it reports nothing or reports
// less than 1/Factor of the calculated speed.
type UnderReportPolicy struct {
	Factor float64
}

// DefaultSpeedPolicy keeps the device speed while calculated < device*2.
var DefaultSpeedPolicy SpeedPolicy = UnderReportPolicy{Factor: 2}

func (p UnderReportPolicy) Select(deviceMps, calculatedMps float64) float64 {
	if deviceMps <= 0 {
		return calculatedMps
	}
	factor := p.Factor
	if factor <= 0 {
		factor = 2
	}
	if calculatedMps < deviceMps*factor {
		return deviceMps
	}
	return calculatedMps
}
