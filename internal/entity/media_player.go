package entity

const (
	MediaPlayerStateOn      = "ON"
	MediaPlayerStateOff     = "OFF"
	MediaPlayerStatePlaying = "PLAYING"
	MediaPlayerStatePaused  = "PAUSED"
	MediaPlayerStateStandby = "STANDBY"
)

func mediaPlayerTranslator() *Translator {
	return &Translator{
		Domain: DomainMediaPlayer,
		AllowedStates: []string{
			MediaPlayerStateOn, MediaPlayerStateOff, MediaPlayerStatePlaying,
			MediaPlayerStatePaused, MediaPlayerStateStandby, RemoteStateUnavailable,
		},
		StateMap: map[string]string{
			"on":           MediaPlayerStateOn,
			"off":          MediaPlayerStateOff,
			"playing":      MediaPlayerStatePlaying,
			"paused":       MediaPlayerStatePaused,
			"idle":         MediaPlayerStateOn,
			"standby":      MediaPlayerStateStandby,
			"unavailable":  RemoteStateUnavailable,
			"unknown":      RemoteStateUnavailable,
		},
		Features: []string{"volume", "source_select", "media_control"},
		Commands: map[string]CommandBuilder{
			"ON": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "media_player", Service: "turn_on", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"OFF": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "media_player", Service: "turn_off", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"PLAY_PAUSE": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "media_player", Service: "media_play_pause", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"STOP": func(id ID, _ map[string]any) (ServiceCall, error) {
				return ServiceCall{Domain: "media_player", Service: "media_stop", Data: map[string]any{"entity_id": string(id)}}, nil
			},
			"VOLUME": func(id ID, params map[string]any) (ServiceCall, error) {
				vol, ok, err := paramInt(params, "volume")
				if err != nil {
					return ServiceCall{}, err
				}
				if !ok {
					return ServiceCall{}, ErrBadParameter
				}
				return ServiceCall{
					Domain:  "media_player",
					Service: "volume_set",
					Data: map[string]any{
						"entity_id":    string(id),
						"volume_level": float64(ClampPercent(vol)) / 100,
					},
				}, nil
			},
			"SOURCE": func(id ID, params map[string]any) (ServiceCall, error) {
				source, ok, err := paramString(params, "source")
				if err != nil {
					return ServiceCall{}, err
				}
				if !ok {
					return ServiceCall{}, ErrBadParameter
				}
				return ServiceCall{
					Domain:  "media_player",
					Service: "select_source",
					Data: map[string]any{
						"entity_id": string(id),
						"source":    source,
					},
				}, nil
			},
		},
	}
}
