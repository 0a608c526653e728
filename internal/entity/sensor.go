package entity

// sensorTranslator has no ON/OFF state set: the remote state *is* the
// hub's raw value, passed through unchanged, since the sensor domain
// has no enum of allowed states in Home Assistant (the value is free
// text/numeric). There are no commands: sensors are read-only.
func sensorTranslator() *Translator {
	return &Translator{
		Domain:        DomainSensor,
		AllowedStates: nil,
		StateMap:      nil,
		Commands:      map[string]CommandBuilder{},
	}
}

// StateToRemote is overridden at the call site for the sensor domain:
// since any hub value is valid, the controller passes the raw state
// straight through instead of calling Translator.StateToRemote. The
// registry entry above exists so the domain has commands/features
// wired consistently with every other domain.

const (
	BinarySensorStateOn  = "ON"
	BinarySensorStateOff = "OFF"
)

func binarySensorTranslator() *Translator {
	return &Translator{
		Domain:        DomainBinarySensor,
		AllowedStates: []string{BinarySensorStateOn, BinarySensorStateOff, RemoteStateUnavailable},
		StateMap: map[string]string{
			"on":          BinarySensorStateOn,
			"off":         BinarySensorStateOff,
			"unavailable": RemoteStateUnavailable,
		},
		Commands: map[string]CommandBuilder{},
	}
}
