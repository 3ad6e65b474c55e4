// Package privacy masks personal data before it reaches logs.
package privacy

import (
	"fmt"
	"net"
	"strings"
)

// AnonymizeIP zeroes the host part of an address: the last octet for IPv4 and
// everything past the /48 prefix for IPv6. Returns "unknown" for empty input and
// "invalid" when the address cannot be parsed.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// AnonymizeRemoteAddr anonymizes a host:port pair as found in http.Request.RemoteAddr.
func AnonymizeRemoteAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return AnonymizeIP(addr)
	}
	return AnonymizeIP(host)
}

// MaskEmail keeps the first character of the local part and the domain,
// e.g. "jane.doe@example.com" becomes "j***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
