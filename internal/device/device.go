// Package device derives device identity and classification from request metadata.
package device

import (
	"strings"

	"github.com/google/uuid"
)

// Type classifies the logical client presenting a session.
type Type string

const (
	TypeDesktop Type = "desktop"
	TypeMobile  Type = "mobile"
	TypeTablet  Type = "tablet"
	TypeUnknown Type = "unknown"
)

// Info describes one logical client device at login time.
// ID is minted once per device and reused across every token rotation so a
// browser keeps a single lineage of session rows.
type Info struct {
	ID        string
	Name      string
	Type      Type
	UserAgent string
	IPAddress string
}

// NewID mints a random, unguessable device identifier.
func NewID() string {
	return uuid.New().String()
}

// Derive builds device Info from the inbound request's user agent and network
// address using substring heuristics. deviceID may be empty, in which case a
// fresh one is minted (first login from this device).
func Derive(deviceID, userAgent, ipAddress string) Info {
	if deviceID == "" {
		deviceID = NewID()
	}
	return Info{
		ID:        deviceID,
		Name:      browserName(userAgent),
		Type:      classify(userAgent),
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
}

func classify(userAgent string) Type {
	switch {
	case userAgent == "":
		return TypeUnknown
	case strings.Contains(userAgent, "Tablet") || strings.Contains(userAgent, "iPad"):
		return TypeTablet
	case strings.Contains(userAgent, "Mobile"):
		return TypeMobile
	default:
		return TypeDesktop
	}
}

// browserTokens is checked in order; Edge and Opera must precede Chrome, and
// Chrome must precede Safari, because their user agents embed the later tokens.
var browserTokens = []struct {
	token string
	name  string
}{
	{"Edg", "Edge Browser"},
	{"OPR", "Opera Browser"},
	{"Opera", "Opera Browser"},
	{"Chrome", "Chrome Browser"},
	{"Firefox", "Firefox Browser"},
	{"Safari", "Safari Browser"},
}

func browserName(userAgent string) string {
	for _, b := range browserTokens {
		if strings.Contains(userAgent, b.token) {
			return b.name
		}
	}
	return "Unknown Device"
}
