package regulation

import (
	"time"
)

// RegulationInput contient les données d'entrée pour l'algorithme
type RegulationInput struct {
	Velocity      float64   // Vitesse mesurée (m/s)
	TargetSpeed   float64   // Consigne de vitesse (m/s)
	MaxThrottle   float64   // Accélérateur maximum autorisé (0–1)
	BatteryCharge float64   // Charge batterie restante (%)
	Timestamp     time.Time // Timestamp de la mesure (temps simulé)
}

// RegulationOutput contient le résultat de l'algorithme
type RegulationOutput struct {
	Throttle  float64                // Accélérateur calculé (0–1)
	IsDriving bool                   // Moteur alimenté
	Reason    string                 // Raison de la décision
	DebugInfo map[string]interface{} // Infos de debug
}

// RegulationService interface pour les algorithmes de régulation de vitesse
type RegulationService interface {
	// Calculate calcule l'accélérateur basé sur l'entrée
	Calculate(input RegulationInput) RegulationOutput

	// Reset remet à zéro l'état interne de l'algorithme
	Reset()

	// GetName retourne le nom de l'algorithme
	GetName() string

	// GetStatus retourne l'état interne pour monitoring
	GetStatus() map[string]interface{}
}

func clampThrottle(v, max float64) float64 {
	if max <= 0 || max > 1 {
		max = 1
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func batteryEmpty(input RegulationInput) RegulationOutput {
	return RegulationOutput{
		Throttle:  0,
		IsDriving: false,
		Reason:    "Battery exhausted - throttle cut",
		DebugInfo: map[string]interface{}{
			"battery_charge": input.BatteryCharge,
			"mode":           "EMPTY",
		},
	}
}
