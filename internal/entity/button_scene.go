package entity

const ButtonStateAvailable = "AVAILABLE"

func buttonTranslator() *Translator {
	return &Translator{
		Domain:        DomainButton,
		AllowedStates: []string{ButtonStateAvailable, RemoteStateUnavailable},
		StateMap: map[string]string{
			"unknown":     ButtonStateAvailable,
			"unavailable": RemoteStateUnavailable,
		},
		Commands: map[string]CommandBuilder{
			"PRESS": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "button", Service: "press", Data: map[string]any{"entity_id": string(id)}}, nil
			},
		},
	}
}

const SceneStateAvailable = "AVAILABLE"

func sceneTranslator() *Translator {
	return &Translator{
		Domain:        DomainScene,
		AllowedStates: []string{SceneStateAvailable, RemoteStateUnavailable},
		StateMap: map[string]string{
			"unknown":     SceneStateAvailable,
			"unavailable": RemoteStateUnavailable,
		},
		Commands: map[string]CommandBuilder{
			"ACTIVATE": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "scene", Service: "turn_on", Data: map[string]any{"entity_id": string(id)}}, nil
			},
		},
	}
}
