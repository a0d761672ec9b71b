package mcpserver

import (
	"context"
	"fmt"
	"testing"

	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/wizard"
)

// TestServerStartRandomPort verifies that Start() binds a free port.
func TestServerStartRandomPort(t *testing.T) {
	server := New(Options{Flows: flows.New(), Store: wizard.NewStore(wizard.NewMemoryBackend())})

	port, err := server.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Errorf("Invalid port number: %d", port)
	}

	expectedURL := fmt.Sprintf("http://localhost:%d/mcp", port)
	if server.URL() != expectedURL {
		t.Errorf("URL mismatch: got %s, want %s", server.URL(), expectedURL)
	}

	if err := server.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}
}

// TestServerDoubleStart verifies that calling Start() twice returns an error.
func TestServerDoubleStart(t *testing.T) {
	server := New(Options{Flows: flows.New(), Store: wizard.NewStore(wizard.NewMemoryBackend())})
	ctx := context.Background()

	if _, err := server.Start(ctx, ""); err != nil {
		t.Fatalf("First Start() failed: %v", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			t.Errorf("Stop() failed: %v", err)
		}
	}()

	if _, err := server.Start(ctx, ""); err == nil {
		t.Error("Second Start() should have returned an error")
	}
}
