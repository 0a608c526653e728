package entity

// Light remote states.
const (
	LightStateOn     = "ON"
	LightStateOff    = "OFF"
	LightStateToggle = "TOGGLE"
)

// lightTranslator reproduces the light domain table from spec.md §4.2
// byte-identically: this mapping is part of the remote's expected
// contract and must not drift.
func lightTranslator() *Translator {
	return &Translator{
		Domain:        DomainLight,
		AllowedStates: []string{LightStateOn, LightStateOff, RemoteStateUnavailable},
		StateMap: map[string]string{
			"on":          LightStateOn,
			"off":         LightStateOff,
			"unavailable": RemoteStateUnavailable,
		},
		Features: []string{"brightness", "color", "color_temperature"},
		Commands: map[string]CommandBuilder{
			"ON": func(id ID, params map[string]any) (ServiceCall, error) {
				data := map[string]any{"entity_id": string(id)}
				if pct, ok, err := paramInt(params, "brightness"); err != nil {
					return ServiceCall{}, err
				} else if ok {
					data["brightness_pct"] = ClampPercent(pct)
				}
				if hue, ok, err := paramFloat(params, "hue"); err != nil {
					return ServiceCall{}, err
				} else if ok {
					data["hue"] = hue
				}
				if sat, ok, err := paramFloat(params, "saturation"); err != nil {
					return ServiceCall{}, err
				} else if ok {
					data["saturation"] = sat
				}
				if kelvin, ok, err := paramInt(params, "color_temperature"); err != nil {
					return ServiceCall{}, err
				} else if ok {
					data["color_temperature"] = ColorTempKelvin(kelvin)
				}
				return ServiceCall{Domain: "light", Service: "turn_on", Data: data}, nil
			},
			"OFF": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "light", Service: "turn_off", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"TOGGLE": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "light", Service: "toggle", Data: map[string]any{"entity_id": string(id)}}, nil
			},
		},
	}
}
