package engine

import (
	"net"
)

// Non-routable IPv4 blocks that skip external resolution.
var localV4Blocks = mustCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
)

// IsLocalIP reports whether the address is loopback, private, or link-local.
// Such addresses are tagged with the "Local" sentinel country and never sent
// to the external resolver.
func IsLocalIP(ip string) bool {
	if ip == "127.0.0.1" || ip == "::1" {
		return true
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	v4 := parsed.To4()
	if v4 == nil {
		return false
	}

	for _, block := range localV4Blocks {
		if block.Contains(v4) {
			return true
		}
	}
	return false
}

func mustCIDRs(cidrs ...string) []*net.IPNet {
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, block, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		blocks = append(blocks, block)
	}
	return blocks
}
