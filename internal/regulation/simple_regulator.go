package regulation

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// SimpleConfig configuration du régulateur simple
type SimpleConfig struct {
	HysteresisMargin float64 // Marge d'hystérésis autour de la consigne (m/s)
	DriveThrottle    float64 // Accélérateur appliqué en phase d'accélération (0–1)
}

// SimpleRegulator régulateur simple sans PID (tout/rien avec hystérésis)
type SimpleRegulator struct {
	config    SimpleConfig
	logger    *logrus.Logger
	mutex     sync.RWMutex
	isDriving bool
}

func NewSimpleRegulator(config SimpleConfig, logger *logrus.Logger) *SimpleRegulator {
	return &SimpleRegulator{
		config: config,
		logger: logger,
	}
}

func (s *SimpleRegulator) GetName() string {
	return "Simple On/Off Regulator"
}

func (s *SimpleRegulator) Calculate(input RegulationInput) RegulationOutput {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if input.BatteryCharge <= 0 {
		s.isDriving = false
		return batteryEmpty(input)
	}

	return s.calculateCruiseSimple(input)
}

func (s *SimpleRegulator) calculateCruiseSimple(input RegulationInput) RegulationOutput {
	var throttle float64
	var reason string

	driveThrottle := clampThrottle(s.config.DriveThrottle, input.MaxThrottle)
	if s.config.DriveThrottle <= 0 {
		driveThrottle = clampThrottle(1, input.MaxThrottle)
	}

	// Logique avec hystérésis
	if !s.isDriving {
		// Actuellement en roue libre : accélérer si trop lent
		if input.Velocity < input.TargetSpeed-s.config.HysteresisMargin {
			throttle = driveThrottle
			s.isDriving = true
			reason = "Starting drive - below target"
		} else {
			throttle = 0
			reason = "Coasting - speed sufficient"
		}
	} else {
		// Actuellement en accélération : couper au-delà de la consigne + marge
		if input.Velocity > input.TargetSpeed+s.config.HysteresisMargin {
			throttle = 0
			s.isDriving = false
			reason = "Target exceeded - coasting"
		} else {
			throttle = driveThrottle
			reason = "Continuing drive - below upper band"
		}
	}

	s.logger.Debugf("Simple: Speed=%.2fm/s, Target=%.2fm/s, Throttle=%.2f, Driving=%v",
		input.Velocity, input.TargetSpeed, throttle, s.isDriving)

	return RegulationOutput{
		Throttle:  throttle,
		IsDriving: throttle > 0,
		Reason:    reason,
		DebugInfo: map[string]interface{}{
			"velocity":          input.Velocity,
			"target_speed":      input.TargetSpeed,
			"hysteresis_margin": s.config.HysteresisMargin,
			"is_driving":        s.isDriving,
			"mode":              "CRUISE",
		},
	}
}

func (s *SimpleRegulator) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.isDriving = false
	s.logger.Info("Simple regulator reset")
}

func (s *SimpleRegulator) GetStatus() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return map[string]interface{}{
		"name":       s.GetName(),
		"config":     s.config,
		"is_driving": s.isDriving,
	}
}
