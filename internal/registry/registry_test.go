package registry

import (
	"testing"

	"github.com/xairaven/xailyser/internal/dissect"
)

func dummyDissector(name string) dissect.Dissector {
	return dissect.Dissector{
		Name:  name,
		Parse: func(data []byte, _ *dissect.Context) (dissect.Result, error) { return dissect.Result{}, nil },
	}
}

func TestRegister_RejectsDuplicate(t *testing.T) {
	r := New()

	if err := r.Register(dissect.TagEthernet, 0x0800, dummyDissector("IPv4")); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := r.Register(dissect.TagEthernet, 0x0800, dummyDissector("IPv4-again"))
	if err == nil {
		t.Fatal("expected ErrDuplicateBinding")
	}
}

func TestRegister_RejectsAfterSeal(t *testing.T) {
	r := New()
	r.Seal()

	err := r.Register(dissect.TagEthernet, 0x0800, dummyDissector("IPv4"))
	if err == nil {
		t.Fatal("expected ErrAlreadySealed")
	}
}

func TestLookupPreferred_DestinationPortWins(t *testing.T) {
	r := New()
	_ = r.Register(dissect.TagUDP, 53, dummyDissector("DNS"))
	r.Seal()

	// Destination 53, source 40000: destination (Selector) is consulted
	// first and already matches, so the source port is never tried.
	d, ok := r.LookupPreferred(dissect.TagUDP, 53, 40000)
	if !ok || d.Name != "DNS" {
		t.Fatalf("expected DNS via destination port, got %#v, %v", d, ok)
	}
}

func TestLookupPreferred_FallsBackToSourcePort(t *testing.T) {
	r := New()
	_ = r.Register(dissect.TagUDP, 53, dummyDissector("DNS"))
	r.Seal()

	// Destination port is an ephemeral client port with no binding;
	// source port 53 (a DNS response) should be tried next.
	d, ok := r.LookupPreferred(dissect.TagUDP, 40000, 53)
	if !ok || d.Name != "DNS" {
		t.Fatalf("expected DNS via source-port fallback, got %#v, %v", d, ok)
	}
}

func TestLookupPreferred_NoBindingEitherSide(t *testing.T) {
	r := New()
	r.Seal()

	_, ok := r.LookupPreferred(dissect.TagUDP, 9999, 9998)
	if ok {
		t.Fatal("expected no binding to be found")
	}
}

func TestEntries_SnapshotIsIndependent(t *testing.T) {
	r := New()
	_ = r.Register(dissect.TagEthernet, 0x0800, dummyDissector("IPv4"))

	entries := r.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	_ = r.Register(dissect.TagEthernet, 0x86DD, dummyDissector("IPv6"))

	if len(entries) != 1 {
		t.Fatalf("snapshot mutated after further registration: %d", len(entries))
	}
}
