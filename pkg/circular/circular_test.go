package circular

import (
	"testing"
)

func TestRetrieveOrdersOldestFirst(t *testing.T) {
	b := CreateBuffer[float32](4)
	b.Enqueue(1, 2, 3)
	b.Enqueue(4, 5)

	out := make([]float32, 4)
	if err := b.Retrieve(out); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	want := []float32{2, 3, 4, 5}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestEnqueueLargerThanBuffer(t *testing.T) {
	b := CreateBuffer[int](3)
	b.Enqueue(1, 2, 3, 4, 5, 6, 7)

	out := make([]int, 3)
	if err := b.Retrieve(out); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if out[0] != 5 || out[1] != 6 || out[2] != 7 {
		t.Errorf("expected tail [5 6 7], got %v", out)
	}
}

func TestRetrieveSizeMismatch(t *testing.T) {
	b := CreateBuffer[int](3)
	if err := b.Retrieve(make([]int, 2)); err == nil {
		t.Error("expected error for mismatched target size")
	}
}

func TestFullAndReset(t *testing.T) {
	b := CreateBuffer[int](4)
	if b.Full() {
		t.Error("empty buffer reported full")
	}

	b.Enqueue(1, 2, 3)
	if b.Full() {
		t.Error("partially written buffer reported full")
	}

	b.Enqueue(4)
	if !b.Full() {
		t.Error("expected buffer to be full after 4 writes")
	}

	b.Reset()
	if b.Full() {
		t.Error("expected buffer not full after reset")
	}

	out := make([]int, 4)
	_ = b.Retrieve(out)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %d after reset, want 0", i, v)
		}
	}
}
