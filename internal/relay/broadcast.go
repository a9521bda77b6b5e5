package relay

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/balihome/balirelay/internal/logging"
)

// ObserverFunc receives item state changes pushed by the hub
type ObserverFunc func(ItemUpdate)

// broadcastRouter dispatches ui_broadcast messages to the observer
// registered for the affected device. One observer per device; registering
// again replaces the prior observer. Dispatch is fire-and-forget so a slow
// or panicking observer never stalls the receive path.
type broadcastRouter struct {
	mu        sync.RWMutex
	observers map[string]ObserverFunc
}

func newBroadcastRouter() *broadcastRouter {
	return &broadcastRouter{observers: make(map[string]ObserverFunc)}
}

// register installs fn as the observer for deviceID, replacing any prior one
func (r *broadcastRouter) register(deviceID string, fn ObserverFunc) {
	r.mu.Lock()
	r.observers[deviceID] = fn
	r.mu.Unlock()
}

// dispatch routes a broadcast message. Messages for devices without an
// observer, and subclasses other than item updates, are dropped with a
// diagnostic trace.
func (r *broadcastRouter) dispatch(msg *Message) {
	if msg.MsgSubclass != subclassItemUpdated {
		logging.Warn("Unknown broadcast subclass",
			zap.String("msg_subclass", msg.MsgSubclass),
		)
		return
	}

	var update ItemUpdate
	if err := json.Unmarshal(msg.Result, &update); err != nil {
		logging.Warn("Undecodable item update broadcast", zap.Error(err))
		return
	}

	r.mu.RLock()
	fn, ok := r.observers[update.DeviceID]
	r.mu.RUnlock()
	if !ok {
		// Devices may broadcast before their observer is attached
		logging.Debug("No observer for item update",
			zap.String("device_id", update.DeviceID),
			zap.String("item", update.Name),
		)
		return
	}

	logging.Debug("Dispatching item update",
		zap.String("device_id", update.DeviceID),
		zap.String("item", update.Name),
	)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Error("Item observer panicked",
					zap.String("device_id", update.DeviceID),
					zap.Any("panic", rec),
				)
			}
		}()
		fn(update)
	}()
}
