package broadcast

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/xairaven/xailyser/internal/config"
)

const testPasswordHash = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8" // sha256("password")

func runHandshakeServer(t *testing.T, server net.Conn, done chan<- error) {
	t.Helper()

	go func() {
		done <- handshake(server, testPasswordHash, config.CompressionNone, "Ethernet", nil)
	}()
}

func readNonce(t *testing.T, client net.Conn) string {
	t.Helper()

	payload, err := readFrame(client)
	if err != nil {
		t.Fatalf("read nonce: %v", err)
	}

	var n nonceFrame
	if err := json.Unmarshal(payload, &n); err != nil {
		t.Fatalf("decode nonce: %v", err)
	}

	if n.Kind != KindNonce {
		t.Fatalf("expected KindNonce, got %v", n.Kind)
	}

	return n.Nonce
}

// TestHandshake_CorrectDigestReceivesWelcome covers the success path:
// digest = SHA-256(passwordHash || nonce) must yield a Welcome frame.
func TestHandshake_CorrectDigestReceivesWelcome(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	runHandshakeServer(t, server, done)

	nonce := readNonce(t, client)

	sum := sha256.Sum256([]byte(testPasswordHash + nonce))
	digest := hex.EncodeToString(sum[:])

	if err := writeJSON(client, authenticateFrame{Kind: KindAuthenticate, Digest: digest}); err != nil {
		t.Fatalf("send authenticate: %v", err)
	}

	payload, err := readFrame(client)
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}

	var w welcomeFrame
	if err := json.Unmarshal(payload, &w); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}

	if w.Kind != KindWelcome {
		t.Fatalf("expected KindWelcome, got %v", w.Kind)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("handshake returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handshake goroutine did not complete")
	}
}

// TestHandshake_WrongDigestNeverReceivesWelcome covers invariant 6: a
// client that cannot prove knowledge of the shared secret must never see
// a Welcome frame.
func TestHandshake_WrongDigestNeverReceivesWelcome(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	runHandshakeServer(t, server, done)

	_ = readNonce(t, client)

	if err := writeJSON(client, authenticateFrame{Kind: KindAuthenticate, Digest: "not-the-right-digest"}); err != nil {
		t.Fatalf("send authenticate: %v", err)
	}

	payload, err := readFrame(client)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	kind, err := peekKind(payload)
	if err != nil {
		t.Fatalf("peek kind: %v", err)
	}

	if kind == KindWelcome {
		t.Fatal("wrong digest must never produce a Welcome frame")
	}

	if kind != KindUnauthorized {
		t.Fatalf("expected KindUnauthorized, got %v", kind)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected handshake to return an error for a bad digest")
		}
	case <-time.After(time.Second):
		t.Fatal("handshake goroutine did not complete")
	}
}
