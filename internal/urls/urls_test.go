package urls

import "testing"

func TestLogin(t *testing.T) {
	got := Login(DefaultAuthHost, "user", "abc123", DefaultOEM)
	want := "https://vera-us-oem-autha11.mios.com/autha/auth/username/user?SHA1Password=abc123&PK_Oem=73&TokenVersion=2"
	if got != want {
		t.Errorf("Login() = %s, want %s", got, want)
	}
}

func TestBase_SchemePassthrough(t *testing.T) {
	got := SessionToken("http://127.0.0.1:8080")
	want := "http://127.0.0.1:8080/info/session/token"
	if got != want {
		t.Errorf("SessionToken() = %s, want %s", got, want)
	}
}

func TestAccountDevices(t *testing.T) {
	got := AccountDevices("vera-us-oem-account11.mios.com", "123456")
	want := "https://vera-us-oem-account11.mios.com/account/account/account/123456/devices"
	if got != want {
		t.Errorf("AccountDevices() = %s, want %s", got, want)
	}
}

func TestDevice(t *testing.T) {
	got := Device("swf-us-oem-device12.mios.com", "70009999")
	want := "https://swf-us-oem-device12.mios.com/device/device/device/70009999"
	if got != want {
		t.Errorf("Device() = %s, want %s", got, want)
	}
}
