package urls

import (
	"fmt"
	"strings"
)

// Endpoints for the MMS legacy cloud API. Hosts other than the auth host are
// discovered at runtime: the account server comes back with the portal
// identity and the device server comes back with the device listing.
//
// API reference:
//   - https://developer.mios.com/api/legacy-cloud-api/documents/mms-api-public/
//   - https://developer.mios.com/api/legacy-cloud-api/documents/access-ezlo-hubs-remotely-and-control-devices/

// DefaultAuthHost is the OEM authentication portal used for the initial
// username/password login.
const DefaultAuthHost = "vera-us-oem-autha11.mios.com"

// DefaultOEM is the PK_Oem value assigned to the Bali Motorization app.
const DefaultOEM = "73"

// TokenVersion is the MMS token format requested on login. Version 2 tokens
// carry the base64 payload with the expiry and account id.
const TokenVersion = "2"

// base normalizes a host to a URL prefix. Hosts from the MMS API are bare
// hostnames; hosts carrying an explicit scheme are passed through so local
// overrides and tests can target plain-HTTP servers.
func base(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// Login builds the portal login URL. The password must already be salted and
// hashed (see mms.HashPassword).
func Login(authHost, username, hashedPassword, oem string) string {
	return fmt.Sprintf("%s/autha/auth/username/%s?SHA1Password=%s&PK_Oem=%s&TokenVersion=%s",
		base(authHost), username, hashedPassword, oem, TokenVersion)
}

// SessionToken builds the session token URL on the account server.
func SessionToken(accountServer string) string {
	return fmt.Sprintf("%s/info/session/token", base(accountServer))
}

// AccountDevices builds the device listing URL for an account.
func AccountDevices(accountServer, accountID string) string {
	return fmt.Sprintf("%s/account/account/account/%s/devices", base(accountServer), accountID)
}

// Device builds the device detail URL on the device server. The response
// carries the Server_Relay assignment.
func Device(deviceServer, deviceID string) string {
	return fmt.Sprintf("%s/device/device/device/%s", base(deviceServer), deviceID)
}
