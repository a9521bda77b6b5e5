package mms

import (
	"context"
	"encoding/json"

	"github.com/balihome/balirelay/internal/logging"
	"github.com/balihome/balirelay/internal/urls"
)

// DeviceServer describes the hub assigned to the account: its identifier,
// the device-server hosts that know about it, and the session token used to
// look it up.
type DeviceServer struct {
	DeviceID  string
	Server    string
	ServerAlt string
	Token     *SessionToken
}

// Host returns the device server to talk to, preferring the primary host and
// falling back to the alternate.
func (d *DeviceServer) Host() string {
	if d.Server != "" {
		return d.Server
	}
	return d.ServerAlt
}

// deviceListResponse is the account device listing body. PK_Device arrives
// as a number from some portal versions and a string from others.
type deviceListResponse struct {
	Devices []struct {
		PKDevice        json.Number `json:"PK_Device"`
		ServerDevice    string      `json:"Server_Device"`
		ServerDeviceAlt string      `json:"Server_Device_Alt"`
	} `json:"Devices"`
}

// DeviceResolver looks up the account's hub through the account server.
//
// Multi-hub accounts are not supported: the first device in the listing is
// used and the rest are ignored. This is a documented limitation.
type DeviceResolver struct {
	transport Transport
}

// NewDeviceResolver creates a resolver over the given transport
func NewDeviceResolver(transport Transport) *DeviceResolver {
	return &DeviceResolver{transport: transport}
}

// Resolve fetches the account's device listing and returns the first device.
// Fails with a device lookup error when the request fails or the listing is
// empty.
func (r *DeviceResolver) Resolve(ctx context.Context, token *SessionToken) (*DeviceServer, error) {
	accountID := token.Identity.AccountID()
	endpoint := urls.AccountDevices(token.Identity.AccountHost(), accountID)
	logging.LogHTTPCall("device_list", endpoint)

	var resp deviceListResponse
	if err := r.transport.GetJSON(ctx, endpoint, token.AuthHeaders(), &resp); err != nil {
		return nil, NewDeviceLookupError("failed to get account devices", err)
	}

	if len(resp.Devices) == 0 {
		return nil, NewDeviceLookupError("account has no devices", nil)
	}

	device := resp.Devices[0]
	return &DeviceServer{
		DeviceID:  device.PKDevice.String(),
		Server:    device.ServerDevice,
		ServerAlt: device.ServerDeviceAlt,
		Token:     token,
	}, nil
}
