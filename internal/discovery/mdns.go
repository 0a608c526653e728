// Package discovery advertises this bridge on the local network via
// mDNS and persists the driver's setup-flow configuration to disk.
package discovery

import (
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	serviceType = "_uc-integration._tcp"
	domain      = "local."
)

// Advertisement wraps the live mDNS registration so it can be shut
// down cleanly on process exit.
type Advertisement struct {
	server   *zeroconf.Server
	listener net.Listener
}

// Advertise registers this bridge instance on the LAN, with TXT
// records name/ver/developer per spec.md §4.6. The returned
// Advertisement must be Shutdown on process exit.
func Advertise(name, version, developer string, port int, logger *zap.Logger) (*Advertisement, error) {
	txt := []string{
		fmt.Sprintf("name=%s", name),
		fmt.Sprintf("ver=%s", version),
		fmt.Sprintf("developer=%s", developer),
	}

	server, err := zeroconf.Register(name, serviceType, domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	logger.Info("mdns advertised",
		zap.String("service", serviceType),
		zap.Int("port", port),
		zap.String("name", name),
	)

	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the mDNS advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	if a.listener != nil {
		_ = a.listener.Close()
	}
}
