package registry

import (
	"github.com/pkg/errors"

	"github.com/xairaven/xailyser/internal/dissect"
)

// LinkTypeEthernet is the pcap-defined link-type code for Ethernet
// framing, used as the selector under the synthetic TagLink parent.
const LinkTypeEthernet = dissect.Selector(1)

// IP protocol numbers used as selectors under TagIPv4/TagIPv6.
const (
	ipProtoICMPv4 = 1
	ipProtoTCP    = 6
	ipProtoUDP    = 17
	ipProtoICMPv6 = 58
)

// Transport ports used as selectors under TagTCP/TagUDP.
const (
	portDNS          = 53
	portDHCPv4Server = 67
	portDHCPv4Client = 68
	portHTTP         = 80
	portDHCPv6Client = 546
	portDHCPv6Server = 547
)

// Bootstrap seeds a new Registry with the canonical bindings table from
// spec.md §6 and seals it. This is the only place the shipped dissector
// set is wired together; adding a protocol means adding one dissect.Func
// and one line here.
func Bootstrap() (*Registry, error) {
	r := New()

	bindings := []struct {
		parent   dissect.Tag
		selector dissect.Selector
		d        dissect.Dissector
	}{
		{dissect.TagLink, LinkTypeEthernet, dissect.Ethernet},

		{dissect.TagEthernet, 0x0806, dissect.ARP},
		{dissect.TagEthernet, 0x0800, dissect.IPv4},
		{dissect.TagEthernet, 0x86DD, dissect.IPv6},

		// Per spec.md §6, "IPv4/6 proto N" bindings apply under both
		// network-layer parents, even though in practice ICMPv4 only
		// ever rides inside IPv4 and ICMPv6 only inside IPv6.
		{dissect.TagIPv4, ipProtoICMPv4, dissect.ICMPv4},
		{dissect.TagIPv6, ipProtoICMPv4, dissect.ICMPv4},
		{dissect.TagIPv4, ipProtoICMPv6, dissect.ICMPv6},
		{dissect.TagIPv6, ipProtoICMPv6, dissect.ICMPv6},
		{dissect.TagIPv4, ipProtoTCP, dissect.TCP},
		{dissect.TagIPv6, ipProtoTCP, dissect.TCP},
		{dissect.TagIPv4, ipProtoUDP, dissect.UDP},
		{dissect.TagIPv6, ipProtoUDP, dissect.UDP},

		{dissect.TagUDP, portDNS, dissect.DNS},
		{dissect.TagUDP, portDHCPv4Server, dissect.DHCPv4},
		{dissect.TagUDP, portDHCPv4Client, dissect.DHCPv4},
		{dissect.TagUDP, portDHCPv6Client, dissect.DHCPv6},
		{dissect.TagUDP, portDHCPv6Server, dissect.DHCPv6},

		{dissect.TagTCP, portHTTP, dissect.HTTP},
	}

	for _, b := range bindings {
		if err := r.Register(b.parent, b.selector, b.d); err != nil {
			return nil, errors.Wrapf(err, "bootstrap binding %s/%d", b.parent, b.selector)
		}
	}

	r.Seal()

	return r, nil
}
