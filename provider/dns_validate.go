package provider

import (
	"fmt"

	"github.com/miekg/dns"
)

// ValidateDNSServers checks that every address in servers parses as an IP,
// the same parsing path miekg/dns uses to build PTR query names, before
// the list is handed to DnsConfig (written into resolv.conf) or OpenVPN's
// --route flags. Catching a malformed --dns value here is cheaper than
// discovering it from a broken resolv.conf inside the namespace.
func ValidateDNSServers(servers []string) error {
	for _, s := range servers {
		if _, err := dns.ReverseAddr(s); err != nil {
			return fmt.Errorf("invalid DNS server address %q: %w", s, err)
		}
	}
	return nil
}
