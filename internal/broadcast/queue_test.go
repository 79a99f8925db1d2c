package broadcast

import "testing"

// TestOutboundQueue_DropsOldestDataFrameFirst covers spec scenario S4: a
// slow subscriber whose queue is full must have its oldest *data* frame
// dropped to make room for a new one, while control frames are never
// dropped and are never candidates for eviction.
func TestOutboundQueue_DropsOldestDataFrameFirst(t *testing.T) {
	q := newOutboundQueue(2)

	q.push(outFrame{Payload: []byte("data-1")})
	q.push(outFrame{Payload: []byte("data-2")})

	// Queue is now full (2/2). Pushing a third data frame must evict the
	// oldest data frame, not silently grow or drop the new one.
	q.push(outFrame{Payload: []byte("data-3")})

	first, ok := q.pop()
	if !ok {
		t.Fatal("expected a frame")
	}

	if string(first.Payload) != "data-2" {
		t.Errorf("expected data-2 to survive (data-1 evicted), got %q", first.Payload)
	}

	second, ok := q.pop()
	if !ok || string(second.Payload) != "data-3" {
		t.Fatalf("expected data-3 next, got %q, ok=%v", second.Payload, ok)
	}

	if got := q.takeDropped(); got != 1 {
		t.Errorf("dropped count = %d, want 1", got)
	}
}

func TestOutboundQueue_NeverDropsControlFrames(t *testing.T) {
	q := newOutboundQueue(1)

	q.push(outFrame{Payload: []byte("heartbeat-1"), Control: true})
	q.push(outFrame{Payload: []byte("heartbeat-2"), Control: true})
	q.push(outFrame{Payload: []byte("heartbeat-3"), Control: true})

	var got []string
	for i := 0; i < 3; i++ {
		f, ok := q.pop()
		if !ok {
			t.Fatalf("expected frame %d", i)
		}

		got = append(got, string(f.Payload))
	}

	want := []string{"heartbeat-1", "heartbeat-2", "heartbeat-3"}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("frame %d = %q, want %q", i, got[i], w)
		}
	}

	if got := q.takeDropped(); got != 0 {
		t.Errorf("dropped count = %d, want 0", got)
	}
}

func TestOutboundQueue_PopAfterCloseReturnsFalse(t *testing.T) {
	q := newOutboundQueue(4)
	q.close()

	if _, ok := q.pop(); ok {
		t.Fatal("expected pop on a closed, empty queue to return ok=false")
	}
}
