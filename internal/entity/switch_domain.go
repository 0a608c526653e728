package entity

const (
	SwitchStateOn  = "ON"
	SwitchStateOff = "OFF"
)

func switchTranslator() *Translator {
	return &Translator{
		Domain:        DomainSwitch,
		AllowedStates: []string{SwitchStateOn, SwitchStateOff, RemoteStateUnavailable},
		StateMap: map[string]string{
			"on":          SwitchStateOn,
			"off":         SwitchStateOff,
			"unavailable": RemoteStateUnavailable,
		},
		Commands: map[string]CommandBuilder{
			"ON": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "switch", Service: "turn_on", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"OFF": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "switch", Service: "turn_off", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"TOGGLE": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "switch", Service: "toggle", Data: map[string]any{"entity_id": string(id)}}, nil
			},
		},
	}
}

func inputBooleanTranslator() *Translator {
	return &Translator{
		Domain:        DomainInputBoolean,
		AllowedStates: []string{SwitchStateOn, SwitchStateOff, RemoteStateUnavailable},
		StateMap: map[string]string{
			"on":          SwitchStateOn,
			"off":         SwitchStateOff,
			"unavailable": RemoteStateUnavailable,
		},
		Commands: map[string]CommandBuilder{
			"ON": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "input_boolean", Service: "turn_on", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"OFF": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "input_boolean", Service: "turn_off", Data: map[string]any{"entity_id": string(id)}}, nil
			},
		},
	}
}
