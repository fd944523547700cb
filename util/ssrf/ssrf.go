// Package ssrf provides dialers and transports which refuse to connect to non-public network destinations.
//
// Entity URIs, profile links, and API roots are all supplied by remote parties, so every outbound fetch made on behalf of a visitor goes through these checks.
//
// Approach follows https://www.agwa.name/blog/post/preventing_server_side_request_forgery_in_golang (Andrew Ayer, CC0): the check runs in the dialer's Control hook, after DNS resolution, so it can't be bypassed by a hostname which resolves to a private address.
package ssrf

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),       // current network
	netip.MustParsePrefix("10.0.0.0/8"),      // private
	netip.MustParsePrefix("100.64.0.0/10"),   // carrier-grade NAT
	netip.MustParsePrefix("127.0.0.0/8"),     // loopback
	netip.MustParsePrefix("169.254.0.0/16"),  // link-local
	netip.MustParsePrefix("172.16.0.0/12"),   // private
	netip.MustParsePrefix("192.0.0.0/24"),    // IETF protocol assignments
	netip.MustParsePrefix("192.0.2.0/24"),    // documentation
	netip.MustParsePrefix("192.88.99.0/24"),  // 6to4 relay
	netip.MustParsePrefix("192.168.0.0/16"),  // private
	netip.MustParsePrefix("198.18.0.0/15"),   // benchmarking
	netip.MustParsePrefix("198.51.100.0/24"), // documentation
	netip.MustParsePrefix("203.0.113.0/24"),  // documentation
	netip.MustParsePrefix("224.0.0.0/4"),     // multicast
	netip.MustParsePrefix("240.0.0.0/4"),     // reserved, and broadcast
}

// the only IPv6 range currently allocated for global unicast
var globalUnicastIPv6 = netip.MustParsePrefix("2000::/3")

// Ports outbound connections may use by default
var DefaultAllowedPorts = []int{80, 443}

// Reports whether an address is routable on the public internet.
func IsPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() {
		return false
	}
	if addr.Is4() {
		for _, p := range reservedPrefixes {
			if p.Contains(addr) {
				return false
			}
		}
		return true
	}
	return globalUnicastIPv6.Contains(addr)
}

// Returns a [net.Dialer] `Control` function which rejects non-public IPv4 and IPv6 addresses, and any port not in allowedPorts.
func PublicOnlyControl(allowedPorts ...int) func(network, address string, conn syscall.RawConn) error {
	if len(allowedPorts) == 0 {
		allowedPorts = DefaultAllowedPorts
	}
	return func(network, address string, conn syscall.RawConn) error {
		if !(network == "tcp4" || network == "tcp6") {
			return fmt.Errorf("%s is not a safe network type", network)
		}

		addrPort, err := netip.ParseAddrPort(address)
		if err != nil {
			return fmt.Errorf("%s is not a valid address/port pair: %w", address, err)
		}

		if !IsPublicAddr(addrPort.Addr()) {
			return fmt.Errorf("%s is not a public IP address", addrPort.Addr())
		}

		port := int(addrPort.Port())
		for _, p := range allowedPorts {
			if p == port {
				return nil
			}
		}
		return fmt.Errorf("%s is not a safe port number", strconv.Itoa(port))
	}
}

// [net.Dialer] with [PublicOnlyControl]. Other fields are the same defaults as the standard library.
func PublicOnlyDialer(allowedPorts ...int) *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   PublicOnlyControl(allowedPorts...),
	}
}

// Pooled [http.Transport] (cleanhttp defaults) with [PublicOnlyDialer] for dialing.
//
// Environment proxies are not honored, since a proxy would make the dialed address meaningless.
func PublicOnlyTransport(allowedPorts ...int) *http.Transport {
	transport := cleanhttp.DefaultPooledTransport()
	transport.DialContext = PublicOnlyDialer(allowedPorts...).DialContext
	transport.Proxy = nil
	return transport
}
