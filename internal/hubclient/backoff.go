package hubclient

import (
	"math/rand/v2"
	"time"
)

const (
	backoffBase = time.Second
	backoffCap  = 60 * time.Second
)

// nextBackoff doubles the delay per attempt (capped) and adds up to 20%
// jitter, the same way the teacher seeds randomness for MQTT client IDs
// in mqtt.OptsFromConfig, generalized to a reconnect delay.
func nextBackoff(attempt int) time.Duration {
	delay := backoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= backoffCap {
			delay = backoffCap
			break
		}
	}
	span := int64(delay) / 5
	if span <= 0 {
		return delay
	}
	jitter := time.Duration(rand.Int64N(span))
	return delay + jitter
}
