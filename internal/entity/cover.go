package entity

const (
	CoverStateOpen    = "OPEN"
	CoverStateClosed  = "CLOSED"
	CoverStateOpening = "OPENING"
	CoverStateClosing = "CLOSING"
)

func coverTranslator() *Translator {
	return &Translator{
		Domain: DomainCover,
		AllowedStates: []string{
			CoverStateOpen, CoverStateClosed, CoverStateOpening, CoverStateClosing, RemoteStateUnavailable,
		},
		StateMap: map[string]string{
			"open":        CoverStateOpen,
			"closed":      CoverStateClosed,
			"opening":     CoverStateOpening,
			"closing":     CoverStateClosing,
			"unavailable": RemoteStateUnavailable,
		},
		Features: []string{"position"},
		Commands: map[string]CommandBuilder{
			"OPEN": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "cover", Service: "open_cover", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"CLOSE": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "cover", Service: "close_cover", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"STOP": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "cover", Service: "stop_cover", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"POSITION": func(id ID, params map[string]any) (ServiceCall, error) {
				pos, ok, err := paramInt(params, "position")
				if err != nil {
					return ServiceCall{}, err
				}
				if !ok {
					return ServiceCall{}, ErrBadParameter
				}
				return ServiceCall{
					Domain:  "cover",
					Service: "set_cover_position",
					Data: map[string]any{
						"entity_id": string(id),
						"position":  CoverPosition(ClampPercent(pos)),
					},
				}, nil
			},
		},
	}
}
