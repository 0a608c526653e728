package remotesession

import (
	"github.com/ucbridge/ha-integration-bridge/internal/proto/integration"
)

const ActorID = "remotesession"

// wsFrame/wsClosed are the read-pump's outcomes, delivered back to the
// session actor's own mailbox so the blocking conn.ReadMessage loop
// never runs on the actor's goroutine (mirrors hubclient's wsFrame/
// wsClosed split).
type wsFrame struct {
	frame *integration.Frame
}

type wsClosed struct {
	err error
}

// probeOutcome is delivered by the disposable hub-probe actor spawned
// at the credentials step of driver setup.
type probeOutcome struct {
	err error
}
