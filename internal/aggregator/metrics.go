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

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors the Aggregator's counters into Prometheus, one Inc()
// per observation per dimension, the same idiom the teacher uses for its
// per-audit-record counters.
type Metrics struct {
	packetsTotal *prometheus.CounterVec
	bytesTotal   *prometheus.CounterVec
}

// NewMetrics registers the CounterVecs against reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid collisions with the global
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		packetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xailyser",
			Subsystem: "aggregator",
			Name:      "packets_total",
			Help:      "Packets observed by the aggregator, labeled by dimension.",
		}, []string{"dimension", "key"}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xailyser",
			Subsystem: "aggregator",
			Name:      "bytes_total",
			Help:      "Bytes observed by the aggregator, labeled by dimension.",
		}, []string{"dimension", "key"}),
	}

	reg.MustRegister(m.packetsTotal, m.bytesTotal)

	return m
}

func (m *Metrics) observe(dimension, key string, n int) {
	m.packetsTotal.WithLabelValues(dimension, key).Inc()
	m.bytesTotal.WithLabelValues(dimension, key).Add(float64(n))
}

func (m *Metrics) ObserveGlobal(n int) {
	m.observe("global", "all", n)
}

func (m *Metrics) ObserveMAC(mac string, n int) {
	m.observe("mac", mac, n)
}

func (m *Metrics) ObserveEtherType(et uint16, n int) {
	m.observe("ether_type", strconv.FormatUint(uint64(et), 16), n)
}

func (m *Metrics) ObserveIPProtocol(proto uint8, n int) {
	m.observe("ip_protocol", strconv.Itoa(int(proto)), n)
}

func (m *Metrics) ObserveTCPPort(port uint16, n int) {
	m.observe("tcp_port", strconv.Itoa(int(port)), n)
}

func (m *Metrics) ObserveUDPPort(port uint16, n int) {
	m.observe("udp_port", strconv.Itoa(int(port)), n)
}
