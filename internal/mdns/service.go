// Package mdns provides mDNS/Zeroconf advertisement so the browser
// extension can discover the daemon on the local network without manual
// configuration.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

const (
	// ServiceType is the mDNS service type for skiptube daemons.
	ServiceType = "_skiptube._tcp"

	// APIVersion is the current API version advertised in TXT records.
	APIVersion = "v1"
)

// Service manages mDNS advertisement for the daemon.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// Start begins advertising the daemon via mDNS. Call it after the HTTP
// server is listening. Errors are typically non-fatal (e.g. multicast
// not supported inside a container).
func (s *Service) Start(instance *domain.Instance, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop existing server if running (for restart scenarios).
	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "skiptubed"
	}

	txtRecords := []string{
		fmt.Sprintf("id=%s", instance.ID),
		fmt.Sprintf("name=%s", instance.Name),
		fmt.Sprintf("version=%s", instance.Version),
		fmt.Sprintf("api=%s", APIVersion),
	}

	if instance.RemoteUrl != "" {
		txtRecords = append(txtRecords, fmt.Sprintf("remote=%s", instance.RemoteUrl))
	}

	service, err := mdns.NewMDNSService(
		host,        // Instance name (hostname)
		ServiceType, // Service type (_skiptube._tcp)
		"",          // Domain (empty = .local)
		"",          // Host (empty = use system hostname)
		port,        // Port
		nil,         // IPs (nil = all interfaces)
		txtRecords,  // TXT records
	)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{
		Zone: service,
	})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}

	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", port,
		"name", instance.Name,
		"id", instance.ID,
	)

	return nil
}

// Stop stops mDNS advertising.
// Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}
