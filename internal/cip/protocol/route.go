package protocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Named ports accepted in route path strings.
var routePorts = map[string]uint8{
	"bp":        1,
	"backplane": 1,
	"enet":      2,
	"a":         2,
	"b":         3,
	"cnet":      2,
	"dnet":      2,
}

const portSegmentExtendedLink = 0x10

// SplitPath separates "host/route..." into host and route. A host without a
// route yields an empty route.
func SplitPath(path string) (string, string) {
	path = strings.TrimSpace(path)
	host, route, _ := strings.Cut(path, "/")
	return host, route
}

// ParseRoutePath converts a route string into EPATH port segments. Accepted forms are
// port/link pairs separated by '/' or ',' ("bp/0", "1/0", "bp/1/enet/192.168.1.55") and a
// lone number, which is a backplane slot.
func ParseRoutePath(route string) ([]byte, error) {
	route = strings.Trim(strings.TrimSpace(route), "/,")
	if route == "" {
		return nil, nil
	}
	parts := strings.FieldsFunc(route, func(r rune) bool { return r == '/' || r == ',' })
	if len(parts) == 1 {
		parts = []string{"bp", parts[0]}
	}
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("route path %q: expected port/link pairs", route)
	}

	var out []byte
	for i := 0; i < len(parts); i += 2 {
		port, err := parsePort(parts[i])
		if err != nil {
			return nil, fmt.Errorf("route path %q: %w", route, err)
		}
		segment, err := encodePortSegment(port, strings.TrimSpace(parts[i+1]))
		if err != nil {
			return nil, fmt.Errorf("route path %q: %w", route, err)
		}
		out = append(out, segment...)
	}
	return out, nil
}

func parsePort(token string) (uint8, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if port, ok := routePorts[token]; ok {
		return port, nil
	}
	n, err := strconv.ParseUint(token, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown port %q", token)
	}
	if n == 0 || n > 14 {
		return 0, fmt.Errorf("port %d out of range 1-14", n)
	}
	return uint8(n), nil
}

func encodePortSegment(port uint8, link string) ([]byte, error) {
	if link == "" {
		return nil, fmt.Errorf("missing link address for port %d", port)
	}
	if n, err := strconv.ParseUint(link, 10, 8); err == nil {
		return []byte{port, uint8(n)}, nil
	}
	if net.ParseIP(link) == nil {
		return nil, fmt.Errorf("invalid link address %q", link)
	}
	segment := []byte{portSegmentExtendedLink | port, uint8(len(link))}
	segment = append(segment, link...)
	if len(segment)%2 != 0 {
		segment = append(segment, 0x00)
	}
	return segment, nil
}
