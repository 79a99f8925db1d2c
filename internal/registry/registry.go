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

// Package registry implements the extension seam described in spec.md §4.2
// and §9: an ordered lookup from (parent layer tag, selector value) to a
// concrete dissector. This is the single place a new protocol is wired in —
// dispatch is by tagged variant and table lookup, no runtime subtype
// hierarchy required.
package registry

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/xairaven/xailyser/internal/dissect"
)

// ErrAlreadySealed is returned by Register once the registry has been
// sealed (the pipeline has started and bindings are frozen).
var ErrAlreadySealed = errors.New("registry: sealed, no further bindings accepted")

// ErrDuplicateBinding is returned by Register when a (parent, selector)
// pair is already bound.
var ErrDuplicateBinding = errors.New("registry: duplicate binding")

// key is the internal lookup key: a parent layer tag plus the selector
// value drawn from it (EtherType, IP protocol number, transport port).
type key struct {
	parent   dissect.Tag
	selector dissect.Selector
}

// Entry is a registry binding: (parent-layer tag, selector value) →
// dissector identity. Immutable once inserted.
type Entry struct {
	Parent    dissect.Tag
	Selector  dissect.Selector
	Dissector dissect.Dissector
}

// Registry is the protocol-parser lookup table. Bindings are only inserted
// during startup via Register; Seal freezes it before the pipeline starts,
// matching the data-model invariant that the registry is fixed after
// initialization. A sealed Registry is safe for concurrent lookups from
// every dissection worker without any locking on the hot path.
type Registry struct {
	mu       sync.Mutex // guards bindings/entries only until Seal
	bindings map[key]dissect.Dissector
	entries  []Entry
	sealed   bool
}

// New returns an empty, unsealed Registry.
func New() *Registry {
	return &Registry{
		bindings: make(map[key]dissect.Dissector),
	}
}

// Register inserts one binding. Valid only before Seal is called —
// callers seed the registry at startup and never again.
func (r *Registry) Register(parent dissect.Tag, selector dissect.Selector, d dissect.Dissector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Wrapf(ErrAlreadySealed, "binding %s/%d -> %s", parent, selector, d.Name)
	}

	k := key{parent: parent, selector: selector}
	if _, exists := r.bindings[k]; exists {
		return errors.Wrapf(ErrDuplicateBinding, "%s/%d", parent, selector)
	}

	r.bindings[k] = d
	r.entries = append(r.entries, Entry{Parent: parent, Selector: selector, Dissector: d})

	return nil
}

// Seal freezes the registry. No mutator is exposed after this point, per
// spec.md §4.2's bootstrapping policy: the pipeline must call Seal before
// starting any dissection worker.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
}

// Lookup resolves a single (parent, selector) pair. Unknown selectors
// return ok=false, which the caller turns into a terminal Unknown
// LayerRecord carrying the residual bytes.
func (r *Registry) Lookup(parent dissect.Tag, selector dissect.Selector) (dissect.Dissector, bool) {
	d, ok := r.bindings[key{parent: parent, selector: selector}]

	return d, ok
}

// LookupPreferred implements the destination-port-wins, source-port-
// fallback policy for transport-layer promotion (spec.md §9 Open
// Question): try selector first, then altSelector.
func (r *Registry) LookupPreferred(parent dissect.Tag, selector, altSelector dissect.Selector) (dissect.Dissector, bool) {
	if d, ok := r.Lookup(parent, selector); ok {
		return d, true
	}

	if altSelector != 0 && altSelector != selector {
		return r.Lookup(parent, altSelector)
	}

	return dissect.Dissector{}, false
}

// Entries returns a snapshot of every registered binding, in registration
// order. Used by startup diagnostics (the --list-decoders table) and
// tests; never consulted on the hot path.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)

	return out
}

// String renders a binding for human-readable diagnostics.
func (e Entry) String() string {
	return fmt.Sprintf("%s/%d -> %s", e.Parent, e.Selector, e.Dissector.Name)
}
