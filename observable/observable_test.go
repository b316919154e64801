package observable

import "testing"

func TestSubscribeDeliversLastValue(t *testing.T) {
	value := New[int]()

	var before []int
	value.Subscribe(func(v int) { before = append(before, v) })
	if len(before) != 0 {
		t.Errorf("got %v, want no delivery before first Set", before)
	}

	value.Set(7)

	var after []int
	value.Subscribe(func(v int) { after = append(after, v) })
	if len(after) != 1 || after[0] != 7 {
		t.Errorf("got %v, want immediate delivery of 7", after)
	}
	if len(before) != 1 || before[0] != 7 {
		t.Errorf("got %v, want earlier subscriber notified with 7", before)
	}
}

func TestSetNotifiesInSubscriptionOrder(t *testing.T) {
	value := New[string]()

	var order []string
	value.Subscribe(func(string) { order = append(order, "first") })
	value.Subscribe(func(string) { order = append(order, "second") })

	value.Set("x")

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("got %v, want [first second]", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	value := New[int]()

	calls := 0
	cancel := value.Subscribe(func(int) { calls++ })

	value.Set(1)
	cancel()
	value.Set(2)

	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}

func TestGet(t *testing.T) {
	value := NewWith(42)
	got, ok := value.Get()
	if !ok || got != 42 {
		t.Errorf("got (%d, %v), want (42, true)", got, ok)
	}

	empty := New[int]()
	if _, ok := empty.Get(); ok {
		t.Error("got a value from an empty observable")
	}
}
