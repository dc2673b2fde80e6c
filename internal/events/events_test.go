package events

import (
	"reflect"
	"testing"
)

func TestEmitter_OrderAndUnsubscribe(t *testing.T) {
	var e Emitter[int]
	var got []string

	offA := e.On(func(v int) { got = append(got, "a") })
	e.On(func(v int) { got = append(got, "b") })

	e.Emit(1)
	offA()
	offA()
	e.Emit(2)

	want := []string{"a", "b", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if e.Len() != 1 {
		t.Errorf("expected 1 handler left, got %d", e.Len())
	}
}

func TestEmitter_Off(t *testing.T) {
	var e Emitter[string]
	calls := 0
	e.On(func(string) { calls++ })
	e.On(func(string) { calls++ })

	e.Off()
	e.Emit("x")

	if calls != 0 {
		t.Errorf("expected no calls after Off, got %d", calls)
	}
	if e.Len() != 0 {
		t.Errorf("expected no handlers, got %d", e.Len())
	}
}

func TestEmitter_UnsubscribeDuringEmit(t *testing.T) {
	var e Emitter[int]
	calls := 0
	var off func()
	off = e.On(func(int) {
		calls++
		off()
	})

	e.Emit(1)
	e.Emit(2)

	if calls != 1 {
		t.Errorf("expected handler to run once, got %d", calls)
	}
}
