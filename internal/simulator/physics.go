package simulator

import (
	"math"

	"rc-physics-lab/internal/battery"
	"rc-physics-lab/internal/units"
)

// EffectiveThrottle is the throttle actually applied: an empty battery
// forces it to 0 whatever the configured value.
func EffectiveThrottle(s State, p Parameters) float64 {
	if s.BatteryCharge <= 0 {
		return 0
	}
	return p.Throttle
}

// ComputeForces returns the force balance for the current velocity.
// Friction only acts while the car is moving; drag uses v·|v| so that it
// always opposes the direction of travel.
func ComputeForces(velocity, throttle float64, p Parameters) Forces {
	f := Forces{
		Motor: (p.MaxTorque * throttle / p.WheelRadius) * p.MotorEfficiency,
		Air:   -p.AirResistance * velocity * math.Abs(velocity),
	}
	if velocity > 0 {
		f.Friction = -p.FrictionCoeff * p.Mass * units.Gravity
	}
	f.Net = f.Motor + f.Friction + f.Air
	return f
}

// Integrate advances s by dt seconds with semi-implicit Euler and returns
// the new state plus a lap event when the finish line was crossed. It does
// not look at IsRunning; callers decide whether to integrate.
func Integrate(s State, p Parameters, trackLength, dt float64) (State, *LapEvent) {
	throttle := EffectiveThrottle(s, p)

	s.Forces = ComputeForces(s.Velocity, throttle, p)
	s.Acceleration = s.Forces.Net / p.Mass

	s.Velocity += s.Acceleration * dt
	if s.Velocity < 0 {
		s.Velocity = 0
	}
	s.Position += s.Velocity * dt

	var lap *LapEvent
	if s.Position >= trackLength {
		// Keep the overshoot as distance into the new lap.
		s.Position -= trackLength
		s.LapCount++
		finished := s.LapTime
		isBest := finished > 0 && finished < s.BestLapTime
		if isBest {
			s.BestLapTime = finished
		}
		s.LapTime = 0
		lap = &LapEvent{
			Lap:         s.LapCount,
			LapTime:     finished,
			BestLapTime: finiteOrNil(s.BestLapTime),
			IsBest:      isBest,
		}
	}

	s.LapTime += dt
	s.ElapsedTime += dt

	if throttle > 0 {
		power := p.BatteryVoltage * p.BatteryCurrent * throttle
		s.TotalEnergy += power * dt
		full := battery.PackEnergy(p.BatteryVoltage, p.BatteryCapacity)
		s.BatteryCharge = battery.RemainingPercent(s.TotalEnergy, full)
	}

	if lap != nil {
		lap.TotalEnergy = s.TotalEnergy
		lap.BatteryCharge = s.BatteryCharge
		lap.ElapsedTime = s.ElapsedTime
	}
	return s, lap
}
