package device

import "testing"

func TestDerive_Heuristics(t *testing.T) {
	testCases := []struct {
		name      string
		userAgent string
		wantType  Type
		wantName  string
	}{
		{
			"desktop chrome",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			TypeDesktop, "Chrome Browser",
		},
		{
			"mobile safari",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1",
			TypeMobile, "Safari Browser",
		},
		{
			"ipad",
			"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 Version/16.0 Safari/604.1",
			TypeTablet, "Safari Browser",
		},
		{
			"android tablet",
			"Mozilla/5.0 (Linux; Android 13; Tablet) AppleWebKit/537.36 Chrome/119.0 Safari/537.36",
			TypeTablet, "Chrome Browser",
		},
		{
			"desktop firefox",
			"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			TypeDesktop, "Firefox Browser",
		},
		{
			"edge before chrome",
			"Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0",
			TypeDesktop, "Edge Browser",
		},
		{
			"opera before chrome",
			"Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 OPR/106.0",
			TypeDesktop, "Opera Browser",
		},
		{
			"unknown agent",
			"curl/8.4.0",
			TypeDesktop, "Unknown Device",
		},
		{
			"empty agent",
			"",
			TypeUnknown, "Unknown Device",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info := Derive("", tc.userAgent, "1.2.3.4")
			if info.Type != tc.wantType {
				t.Errorf("Type = %q, want %q", info.Type, tc.wantType)
			}
			if info.Name != tc.wantName {
				t.Errorf("Name = %q, want %q", info.Name, tc.wantName)
			}
			if info.IPAddress != "1.2.3.4" {
				t.Errorf("IPAddress = %q, want 1.2.3.4", info.IPAddress)
			}
		})
	}
}

func TestDerive_DeviceIDStableAcrossRotations(t *testing.T) {
	first := Derive("", "Mozilla/5.0 Chrome/120.0", "1.2.3.4")
	if first.ID == "" {
		t.Fatal("first login should mint a device id")
	}

	rotated := Derive(first.ID, "Mozilla/5.0 Chrome/121.0", "1.2.3.5")
	if rotated.ID != first.ID {
		t.Errorf("rotation changed device id: %q -> %q", first.ID, rotated.ID)
	}
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == "" || b == "" {
		t.Fatal("NewID returned empty id")
	}
	if a == b {
		t.Error("NewID returned duplicate ids")
	}
}
