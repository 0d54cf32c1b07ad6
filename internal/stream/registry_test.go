package stream

import "testing"

func TestRegistryCancelFiresChannel(t *testing.T) {
	r := NewRegistry()
	id, ch := r.Add()

	if !r.Cancel(id) {
		t.Fatal("Cancel reported unknown id")
	}
	select {
	case <-ch:
	default:
		t.Fatal("cancel channel not closed")
	}
	if r.Cancel(id) {
		t.Fatal("second Cancel reported success")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	id, ch := r.Add()

	r.Remove(id)
	if r.Cancel(id) {
		t.Fatal("removed id still cancellable")
	}
	select {
	case <-ch:
		t.Fatal("Remove closed the cancel channel")
	default:
	}
}

func TestRegistryCancelAll(t *testing.T) {
	r := NewRegistry()
	_, ch1 := r.Add()
	_, ch2 := r.Add()

	r.CancelAll()
	for i, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		default:
			t.Fatalf("channel %d not closed", i)
		}
	}
	if r.Active() != 0 {
		t.Fatalf("%d streams still active", r.Active())
	}
}

func TestRegistryIDsAreUnique(t *testing.T) {
	r := NewRegistry()
	seen := map[uint64]bool{}
	for i := 0; i < 10; i++ {
		id, _ := r.Add()
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		seen[id] = true
	}
}
