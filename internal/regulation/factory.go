package regulation

import (
	"fmt"

	"rc-physics-lab/internal/config"

	"github.com/sirupsen/logrus"
)

// RegulationType type de régulateur
type RegulationType string

const (
	PIDRegulation    RegulationType = "pid"
	SimpleRegulation RegulationType = "simple"
)

// CreateRegulator factory pour créer des régulateurs
func CreateRegulator(regulationType RegulationType, cfg *config.Config, logger *logrus.Logger) (RegulationService, error) {
	switch regulationType {
	case PIDRegulation:
		pidConfig := PIDConfig{
			Kp:               cfg.Cruise.Kp,
			Ki:               cfg.Cruise.Ki,
			Kd:               cfg.Cruise.Kd,
			SmoothingFactor:  cfg.Cruise.SmoothingFactor,
			MaxTimeGap:       cfg.Cruise.MaxTimeGap,
			MaxStepPerSecond: cfg.Cruise.MaxStepPerSecond,
			OverspeedMargin:  1.0, // 1 m/s au-dessus de la consigne
			HoldBand:         0.1, // ±0.1 m/s considéré atteint
		}
		return NewPIDRegulator(pidConfig, logger), nil

	case SimpleRegulation:
		simpleConfig := SimpleConfig{
			HysteresisMargin: cfg.Cruise.HysteresisMargin,
			DriveThrottle:    1.0, // Plein gaz en phase d'accélération
		}
		return NewSimpleRegulator(simpleConfig, logger), nil

	default:
		return nil, fmt.Errorf("unknown regulation type: %s", regulationType)
	}
}
