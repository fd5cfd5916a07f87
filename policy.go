package rdns

import (
	"net"
	"time"
)

// TimeoutPolicy determines the timeout for a single upstream query.
//
// serverAddr is the IP:port of the name server being queried. Any
// non-positive duration is understood as an infinite timeout.
//
// Drives a context deadline on a single upstream exchange, closing the
// gap where a silent upstream could otherwise stall resolution forever.
type TimeoutPolicy func(serverAddr string) (timeout time.Duration)

// DefaultTimeoutPolicy returns the TimeoutPolicy used when Transport.Timeout
// is nil: 100ms to addresses in PrivateNets (useful for resolvers under
// test against loopback fakes), 1s otherwise.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return defaultTimeoutPolicy
}

func defaultTimeoutPolicy(serverAddr string) time.Duration {
	host, _, err := net.SplitHostPort(serverAddr)
	if err != nil {
		host = serverAddr
	}

	ip := net.ParseIP(host)
	for _, n := range PrivateNets {
		if n.Contains(ip) {
			return 100 * time.Millisecond
		}
	}

	return 1 * time.Second
}

// PrivateNets is used by DefaultTimeoutPolicy to return a low timeout for
// destination addresses in one of these subnets.
var PrivateNets = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.0.0.0/24"),
	mustParseCIDR("192.0.2.0/24"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("198.18.0.0/15"),
	mustParseCIDR("198.51.100.0/24"),
	mustParseCIDR("203.0.113.0/24"),
	mustParseCIDR("233.252.0.0/24"),
	mustParseCIDR("::1/128"),
	mustParseCIDR("2001:db8::/32"),
	mustParseCIDR("fd00::/8"),
	mustParseCIDR("fe80::/10"),
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}

	return n
}
