package entity

const (
	ClimateStateOff  = "OFF"
	ClimateStateHeat = "HEAT"
	ClimateStateCool = "COOL"
	ClimateStateAuto = "AUTO"
	ClimateStateFan  = "FAN"
)

func climateTranslator() *Translator {
	return &Translator{
		Domain: DomainClimate,
		AllowedStates: []string{
			ClimateStateOff, ClimateStateHeat, ClimateStateCool, ClimateStateAuto, ClimateStateFan, RemoteStateUnavailable,
		},
		StateMap: map[string]string{
			"off":         ClimateStateOff,
			"heat":        ClimateStateHeat,
			"cool":        ClimateStateCool,
			"heat_cool":   ClimateStateAuto,
			"auto":        ClimateStateAuto,
			"fan_only":    ClimateStateFan,
			"unavailable": RemoteStateUnavailable,
		},
		Features: []string{"target_temperature", "hvac_mode"},
		Commands: map[string]CommandBuilder{
			"TARGET_TEMPERATURE": func(id ID, params map[string]any) (ServiceCall, error) {
				temp, ok, err := paramFloat(params, "temperature")
				if err != nil {
					return ServiceCall{}, err
				}
				if !ok {
					return ServiceCall{}, ErrBadParameter
				}
				return ServiceCall{
					Domain:  "climate",
					Service: "set_temperature",
					Data: map[string]any{
						"entity_id":   string(id),
						"temperature": temp,
					},
				}, nil
			},
			"HVAC_MODE": func(id ID, params map[string]any) (ServiceCall, error) {
				mode, ok, err := paramString(params, "mode")
				if err != nil {
					return ServiceCall{}, err
				}
				if !ok {
					return ServiceCall{}, ErrBadParameter
				}
				hvacMode, known := remoteHVACToHub[mode]
				if !known {
					return ServiceCall{}, ErrBadParameter
				}
				return ServiceCall{
					Domain:  "climate",
					Service: "set_hvac_mode",
					Data: map[string]any{
						"entity_id": string(id),
						"hvac_mode": hvacMode,
					},
				}, nil
			},
		},
	}
}

var remoteHVACToHub = map[string]string{
	ClimateStateOff:  "off",
	ClimateStateHeat: "heat",
	ClimateStateCool: "cool",
	ClimateStateAuto: "heat_cool",
	ClimateStateFan:  "fan_only",
}
