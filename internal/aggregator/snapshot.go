/*
 * xailyser - network capture & deep packet inspection
 * Copyright (c) 2020-2024 the xailyser authors
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package aggregator

// Counter is one dimension's packet/byte counts: Packets/Bytes are the
// delta since the previous snapshot, TotalPackets/TotalBytes the
// cumulative total since the Aggregator started (spec.md §4.4: "a
// separate cumulative total alongside the differential snapshot").
type Counter struct {
	Packets      uint64 `json:"packets"`
	Bytes        uint64 `json:"bytes"`
	TotalPackets uint64 `json:"total_packets"`
	TotalBytes   uint64 `json:"total_bytes"`
}

// StatsSnapshot is the wire shape of a periodic Aggregator emission,
// keyed by each dimension spec.md §4.4 names: source MAC, EtherType, IP
// protocol number, and TCP/UDP destination port.
type StatsSnapshot struct {
	Global       Counter            `json:"global"`
	ByMAC        map[string]Counter `json:"by_mac"`
	ByEtherType  map[uint16]Counter `json:"by_ether_type"`
	ByIPProtocol map[uint8]Counter  `json:"by_ip_protocol"`
	ByTCPPort    map[uint16]Counter `json:"by_tcp_port"`
	ByUDPPort    map[uint16]Counter `json:"by_udp_port"`
}
