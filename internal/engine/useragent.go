package engine

import (
	"strings"

	"github.com/mileusna/useragent"
	"github.com/sitepulse/pulse-go/internal/domain"
)

// ClassifyUserAgent derives device class, browser family, and OS family from
// a user-agent string. Tablet detection takes precedence over mobile;
// desktop is the default. Unparseable input degrades to all-absent so a
// broken UA string can never abort ingestion.
func ClassifyUserAgent(ua string) domain.UserAgentInfo {
	info := domain.UserAgentInfo{}

	if strings.TrimSpace(ua) == "" {
		return info
	}

	parsed := useragent.Parse(ua)
	if parsed.Name == "" && parsed.OS == "" && !parsed.Mobile && !parsed.Tablet && !parsed.Desktop && !parsed.Bot {
		return info
	}

	device := domain.DeviceDesktop
	if parsed.Tablet {
		device = domain.DeviceTablet
	} else if parsed.Mobile {
		device = domain.DeviceMobile
	}
	info.Device = &device

	if parsed.Name != "" {
		browser := domain.Truncate(parsed.Name, domain.MaxFamilyLen)
		info.Browser = &browser
	}
	if parsed.OS != "" {
		os := domain.Truncate(parsed.OS, domain.MaxFamilyLen)
		info.OS = &os
	}

	return info
}
