package relay

import "encoding/json"

// BroadcastID is the reserved correlation id the hub uses for unsolicited
// messages. It never matches a request waiter; the router owns it.
const BroadcastID = "ui_broadcast"

// subclassItemUpdated is the broadcast subclass carrying item state changes
const subclassItemUpdated = "hub.item.updated"

// Protocol methods
const (
	methodLogin        = "loginUserMios"
	methodRegister     = "register"
	methodInfoGet      = "hub.info.get"
	methodDevicesList  = "hub.devices.list"
	methodItemsList    = "hub.items.list"
	methodItemValueSet = "hub.item.value.set"
)

// errLoginAlreadyLogged is returned by loginUserMios when the relay still
// holds a prior session for the device. Treated as success.
const errLoginAlreadyLogged = "user.login.alreadylogged"

// request is an outbound protocol message
type request struct {
	Method string `json:"method"`
	ID     string `json:"id"`
	Params any    `json:"params"`
}

// respError is the protocol-level error the hub attaches to a response
type respError struct {
	Code    int    `json:"code"`
	Data    string `json:"data"`
	Message string `json:"message"`
}

// detail returns the most specific error text available
func (e *respError) detail() string {
	if e.Data != "" {
		return e.Data
	}
	return e.Message
}

// Message is an inbound protocol message: either a response correlated by ID
// or a broadcast carrying a MsgSubclass.
type Message struct {
	ID          string          `json:"id"`
	MsgSubclass string          `json:"msg_subclass,omitempty"`
	Error       *respError      `json:"error"`
	Result      json.RawMessage `json:"result"`
}

// ItemUpdate is the payload of a hub.item.updated broadcast delivered to
// item observers.
type ItemUpdate struct {
	DeviceID  string `json:"deviceId"`
	ItemID    string `json:"_id"`
	Name      string `json:"name"`
	ValueType string `json:"valueType"`
	Value     any    `json:"value"`
}

// Device is one entry of hub.devices.list
type Device struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Subcategory    string `json:"subcategory"`
	Type           string `json:"type"`
	BatteryPowered bool   `json:"batteryPowered"`
	Reachable      bool   `json:"reachable"`
	Status         string `json:"status"`
}

// Item is one entry of hub.items.list
type Item struct {
	ID        string `json:"_id"`
	DeviceID  string `json:"deviceId"`
	Name      string `json:"name"`
	HasGetter bool   `json:"hasGetter"`
	HasSetter bool   `json:"hasSetter"`
	ValueType string `json:"valueType"`
	Value     any    `json:"value"`
}
