package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "session-control" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "session-control")
	}
	if cfg.JWTAudience != "community-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "community-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "168h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "168h")
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.MaxDevicesPerUser != 5 {
		t.Errorf("MaxDevicesPerUser = %d, want 5", cfg.MaxDevicesPerUser)
	}
	if cfg.MaxIdleDays != 30 {
		t.Errorf("MaxIdleDays = %d, want 30", cfg.MaxIdleDays)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("MAX_DEVICES_PER_USER", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.MaxDevicesPerUser != 3 {
		t.Errorf("MaxDevicesPerUser = %d, want 3", cfg.MaxDevicesPerUser)
	}
}

func TestLoad_BcryptCostRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 10, false}, // Should default to 10
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_InvalidPolicyLimits(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("MAX_DEVICES_PER_USER", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject negative MAX_DEVICES_PER_USER")
	}

	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("MAX_IDLE_DAYS", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject negative MAX_IDLE_DAYS")
	}
}

func TestConfig_TTLParsing(t *testing.T) {
	cfg := &Config{
		JWTAccessTTL:  "30m",
		JWTRefreshTTL: "72h",
	}
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", got)
	}
	if got := cfg.RefreshTTL(); got != 72*time.Hour {
		t.Errorf("RefreshTTL = %v, want 72h", got)
	}

	// Invalid values fall back to defaults.
	cfg = &Config{JWTAccessTTL: "bogus", JWTRefreshTTL: ""}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v, want 15m", got)
	}
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("RefreshTTL fallback = %v, want 168h", got)
	}
}

func TestConfig_SweepIntervals(t *testing.T) {
	cfg := &Config{
		ExpiredSweepInterval: "30m",
		IdleSweepInterval:    "12h",
		DeviceLimitInterval:  "6h",
		MaxIdleDays:          14,
	}
	if got := cfg.ExpiredSweepEvery(); got != 30*time.Minute {
		t.Errorf("ExpiredSweepEvery = %v, want 30m", got)
	}
	if got := cfg.IdleSweepEvery(); got != 12*time.Hour {
		t.Errorf("IdleSweepEvery = %v, want 12h", got)
	}
	if got := cfg.DeviceLimitEvery(); got != 6*time.Hour {
		t.Errorf("DeviceLimitEvery = %v, want 6h", got)
	}
	if got := cfg.MaxIdleAge(); got != 14*24*time.Hour {
		t.Errorf("MaxIdleAge = %v, want 336h", got)
	}

	cfg = &Config{}
	if got := cfg.ExpiredSweepEvery(); got != time.Hour {
		t.Errorf("ExpiredSweepEvery fallback = %v, want 1h", got)
	}
	if got := cfg.IdleSweepEvery(); got != 24*time.Hour {
		t.Errorf("IdleSweepEvery fallback = %v, want 24h", got)
	}
	if got := cfg.MaxIdleAge(); got != 30*24*time.Hour {
		t.Errorf("MaxIdleAge fallback = %v, want 720h", got)
	}
}
