package regulation

import (
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultStep pas utilisé quand dt est inconnu (premier appel, reset)
const defaultStep = 1.0 / 60.0

// PIDConfig configuration du régulateur PID
type PIDConfig struct {
	Kp               float64 // Gain proportionnel
	Ki               float64 // Gain intégral
	Kd               float64 // Gain dérivé
	SmoothingFactor  float64 // Constante de lissage de la vitesse (s)
	MaxTimeGap       float64 // Gap max entre mesures avant reset (secondes)
	MaxStepPerSecond float64 // Variation max de l'accélérateur par seconde
	OverspeedMargin  float64 // Dépassement de consigne coupant l'accélérateur (m/s)
	HoldBand         float64 // Bande autour de la consigne considérée atteinte (m/s)
}

// PIDRegulator implémentation PID de la régulation de vitesse
type PIDRegulator struct {
	config PIDConfig
	logger *logrus.Logger
	mutex  sync.RWMutex

	// État interne du PID
	integralError   float64
	previousError   float64
	previousSpeed   float64
	currentThrottle float64
	smoothedSpeed   float64
	lastUpdate      time.Time
	initialized     bool
	seeded          bool
	resetCount      int64
}

func NewPIDRegulator(config PIDConfig, logger *logrus.Logger) *PIDRegulator {
	return &PIDRegulator{
		config: config,
		logger: logger,
	}
}

func (p *PIDRegulator) GetName() string {
	return "PID Regulator"
}

func (p *PIDRegulator) Calculate(input RegulationInput) RegulationOutput {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Batterie vide : l'accélérateur n'a plus d'effet
	if input.BatteryCharge <= 0 {
		p.currentThrottle = 0
		p.integralError = 0
		p.lastUpdate = input.Timestamp
		return batteryEmpty(input)
	}

	return p.calculateCruise(input)
}

func (p *PIDRegulator) calculateCruise(input RegulationInput) RegulationOutput {
	dt := p.timeStep(input.Timestamp)

	// Mise à jour du lissage
	p.updateSmoothedSpeed(input.Velocity, dt)

	// error > 0 = trop lent, error < 0 = trop rapide
	error := input.TargetSpeed - p.smoothedSpeed

	pidOutput := p.calculatePID(error, dt, input.MaxThrottle)
	safeOutput := p.applySafetyChecks(pidOutput, error, dt, input.MaxThrottle)

	p.lastUpdate = input.Timestamp

	result := RegulationOutput{
		Throttle:  safeOutput,
		IsDriving: safeOutput > 0,
		DebugInfo: map[string]interface{}{
			"velocity":       input.Velocity,
			"smoothed_speed": p.smoothedSpeed,
			"target_speed":   input.TargetSpeed,
			"error":          error,
			"pid_raw":        pidOutput,
			"pid_safe":       safeOutput,
			"dt":             dt,
			"integral_error": p.integralError,
			"mode":           "CRUISE",
		},
	}

	switch {
	case error < -p.config.OverspeedMargin:
		result.Reason = "Overspeed detected - throttle released"
	case error > p.config.HoldBand:
		result.Reason = "Below target - accelerating"
	case error < -p.config.HoldBand:
		result.Reason = "Above target - easing off"
	default:
		result.Reason = "Near target - holding"
	}

	p.logger.Debugf("PID: Speed=%.2fm/s, Error=%.2fm/s, Throttle=%.3f, dt=%.3fs",
		p.smoothedSpeed, error, safeOutput, dt)

	return result
}

func (p *PIDRegulator) timeStep(timestamp time.Time) float64 {
	if !p.initialized {
		p.initialized = true
		return defaultStep
	}

	dt := timestamp.Sub(p.lastUpdate).Seconds()

	// Reset si gap trop important
	if p.config.MaxTimeGap > 0 && dt > p.config.MaxTimeGap {
		p.logger.Warnf("PID: Large time gap (%.1fs), resetting controller", dt)
		p.reset()
		p.initialized = true
		return defaultStep
	}
	if dt <= 0 {
		dt = defaultStep
	}
	return dt
}

func (p *PIDRegulator) updateSmoothedSpeed(speed, dt float64) {
	// Premier appel après init/reset : initialisation directe
	if !p.seeded {
		p.smoothedSpeed = speed
		p.previousSpeed = speed
		p.seeded = true
		return
	}

	p.previousSpeed = p.smoothedSpeed
	if p.config.SmoothingFactor <= 0 {
		p.smoothedSpeed = speed
		return
	}
	alpha := 1.0 - math.Exp(-dt/p.config.SmoothingFactor)
	p.smoothedSpeed = alpha*speed + (1-alpha)*p.smoothedSpeed
}

func (p *PIDRegulator) calculatePID(error, dt, maxThrottle float64) float64 {
	// Terme intégral
	previousIntegral := p.integralError
	p.integralError += error * dt

	// Terme dérivé sur la mesure, pas de saut à chaque changement de consigne
	derivative := -(p.smoothedSpeed - p.previousSpeed) / dt

	pidOutput := p.config.Kp*error + p.config.Ki*p.integralError + p.config.Kd*derivative

	// Anti-windup : on n'intègre pas quand la sortie sature
	if clampThrottle(pidOutput, maxThrottle) != pidOutput {
		p.integralError = previousIntegral
	}

	p.previousError = error
	return pidOutput
}

func (p *PIDRegulator) applySafetyChecks(pidOutput, error, dt, maxThrottle float64) float64 {
	// Limitation des bornes
	target := clampThrottle(pidOutput, maxThrottle)

	// Dépassement franc de la consigne : on coupe
	if error < -p.config.OverspeedMargin {
		target = 0
		p.integralError = 0
		p.logger.Debugf("PID: Overspeed (%.2fm/s), releasing throttle", -error)
	}

	// Limitation de la pente pour éviter des sauts brutaux
	if p.config.MaxStepPerSecond > 0 {
		maxDelta := p.config.MaxStepPerSecond * dt
		delta := target - p.currentThrottle
		if delta > maxDelta {
			target = p.currentThrottle + maxDelta
		}
		if delta < -maxDelta && target > 0 {
			target = p.currentThrottle - maxDelta
		}
	}

	p.currentThrottle = clampThrottle(target, maxThrottle)
	return p.currentThrottle
}

func (p *PIDRegulator) Reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.reset()
}

func (p *PIDRegulator) reset() {
	p.previousError = 0
	p.integralError = 0
	p.currentThrottle = 0
	p.initialized = false
	p.seeded = false
	p.resetCount++
	p.logger.Infof("PID controller reset (count: %d)", p.resetCount)
}

func (p *PIDRegulator) GetStatus() map[string]interface{} {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return map[string]interface{}{
		"name":             p.GetName(),
		"config":           p.config,
		"previous_error":   p.previousError,
		"integral_error":   p.integralError,
		"current_throttle": p.currentThrottle,
		"smoothed_speed":   p.smoothedSpeed,
		"last_update":      p.lastUpdate,
		"reset_count":      p.resetCount,
	}
}
