package observable_test

import (
	"testing"

	"leadboard/internal/observable"
)

func TestSetNotifiesInOrderUntilCancelled(t *testing.T) {
	v := observable.New(1)
	var got []int
	cancelA := v.Subscribe(func(n int) { got = append(got, n*10) })
	v.Subscribe(func(n int) { got = append(got, n*100) })

	v.Set(2)
	if v.Get() != 2 {
		t.Fatalf("expected 2, got %d", v.Get())
	}
	if len(got) != 2 || got[0] != 20 || got[1] != 200 {
		t.Fatalf("unexpected notifications %v", got)
	}
	cancelA()
	cancelA()
	v.Set(3)
	if len(got) != 3 || got[2] != 300 {
		t.Fatalf("cancelled subscriber still notified: %v", got)
	}
}

func TestZeroValueUsable(t *testing.T) {
	var v observable.Value[string]
	if v.Get() != "" {
		t.Fatalf("expected empty")
	}
	v.Set("x")
	if v.Get() != "x" {
		t.Fatalf("expected x")
	}
}

func TestLatchFiresOnce(t *testing.T) {
	l := observable.NewLatch()
	if l.Fired() {
		t.Fatalf("new latch should not be fired")
	}
	l.Fire()
	l.Fire()
	select {
	case <-l.Done():
	default:
		t.Fatalf("Done should be closed after Fire")
	}
	if !l.Fired() {
		t.Fatalf("expected fired")
	}
}
