package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventSimulationCompleted, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventSimulationCompleted},
	}}

	simEvent := &Event{Type: EventSimulationCompleted}
	loadEvent := &Event{Type: EventDatasetLoaded}

	if !h.shouldSend(client, simEvent) {
		t.Error("Should receive simulation_completed events")
	}
	if h.shouldSend(client, loadEvent) {
		t.Error("Should NOT receive dataset_loaded events")
	}
}

func TestShouldSend_MonthFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Months: []string{"2025-03"},
	}}

	matching := &Event{
		Type: EventDatasetLoaded,
		Data: map[string]interface{}{"months": []string{"2025-02", "2025-03"}},
	}
	notMatching := &Event{
		Type: EventDatasetLoaded,
		Data: map[string]interface{}{"months": []string{"2025-07"}},
	}
	matchingSingle := &Event{
		Type: EventSimulationCompleted,
		Data: map[string]interface{}{"month": "2025-03"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on months list")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated months")
	}
	if !h.shouldSend(client, matchingSingle) {
		t.Error("Should match on single month field")
	}
}

func TestShouldSend_MinRowsFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinRows: 100,
	}}

	large := &Event{
		Type: EventDatasetLoaded,
		Data: map[string]interface{}{"rows": 5000},
	}
	small := &Event{
		Type: EventDatasetLoaded,
		Data: map[string]interface{}{"rows": 12},
	}
	simulation := &Event{
		Type: EventSimulationCompleted,
		Data: map[string]interface{}{"simulationId": "sim_abc"},
	}

	if !h.shouldSend(client, large) {
		t.Error("Should receive large dataset load")
	}
	if h.shouldSend(client, small) {
		t.Error("Should NOT receive small dataset load")
	}
	if !h.shouldSend(client, simulation) {
		t.Error("MinRows filter should only apply to dataset loads")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventDatasetLoaded}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Months: []string{"2025-03"},
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventSimulationCompleted,
		Data: "string data not a map",
	}

	// Month filter skips non-map data (can't extract months), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when month filter can't extract months")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventSimulationCompleted, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{
		Type:      EventDatasetLoaded,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"rows": 2400},
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_BroadcastHelpers(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Should not panic
	h.BroadcastDatasetLoaded(map[string]interface{}{
		"rows": 1200, "months": []string{"2025-01", "2025-02"},
	})
	h.BroadcastSimulationCompleted(map[string]interface{}{
		"simulationId": "sim_abc123",
	})
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants simulation results
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventSimulationCompleted}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a dataset load (should be filtered out)
	h.Broadcast(&Event{Type: EventDatasetLoaded, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive dataset_loaded event")
	default:
		// Good - filtered out
	}

	// Send a simulation result (should be received)
	h.Broadcast(&Event{Type: EventSimulationCompleted, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive simulation_completed event")
	}
}
