package service

import "context"

// RelayDispatcher delivers a relay command to a physical plug. The device
// service only calls it for devices it believes are reachable; a non-nil
// error means the command did not take effect on the hardware.
type RelayDispatcher interface {
	DispatchRelay(ctx context.Context, deviceID string, on bool) error
}

// LoopbackDispatcher acknowledges every command without touching hardware.
// It stands in for the real fleet transport in development and tests.
type LoopbackDispatcher struct{}

func (LoopbackDispatcher) DispatchRelay(ctx context.Context, deviceID string, on bool) error {
	return nil
}

// EventBroadcaster fans an event out to connected dashboard clients. The
// websocket hub implements it; a nil broadcaster is allowed and ignored.
type EventBroadcaster interface {
	Broadcast(eventType string, payload interface{})
}
