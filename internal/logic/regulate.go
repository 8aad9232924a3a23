package logic

const (
	// HeatBand is how far below the threshold the temperature must fall
	// before heat turns on.
	HeatBand = 1.0
	// HumidityBand is how far below the threshold humidity must fall
	// before the humidifier turns on.
	HumidityBand = 5.0
)

// Regulate maps a reading to desired relay states.
//
// Heat turns on below tempThreshold-HeatBand and off above tempThreshold;
// in between the previous heat state is held. The humidifier is on below
// humidityThreshold-HumidityBand and off otherwise.
func Regulate(r Reading, tempThreshold, humidityThreshold float64, prev ActuatorStatus) ActuatorStatus {
	next := prev
	if next.Heat == "" {
		next.Heat = StateOff
	}

	switch {
	case r.TemperatureF < tempThreshold-HeatBand:
		next.Heat = StateOn
	case r.TemperatureF > tempThreshold:
		next.Heat = StateOff
	}

	if r.HumidityPct < humidityThreshold-HumidityBand {
		next.Humidity = StateOn
	} else {
		next.Humidity = StateOff
	}
	return next
}
