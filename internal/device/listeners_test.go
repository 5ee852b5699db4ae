package device

import (
	"fmt"
	"testing"
)

func TestListeners_EmitInOrder(t *testing.T) {
	var ls Listeners
	var got []string
	for i := range 3 {
		ls.Subscribe(func(source any, ev Event) {
			got = append(got, fmt.Sprintf("%d:%v:%s", i, source, ev.EventName()))
		})
	}

	ls.Emit("vp", DisplayModeChanged{})

	want := "[0:vp:display_mode_changed 1:vp:display_mode_changed 2:vp:display_mode_changed]"
	if fmt.Sprint(got) != want {
		t.Errorf("got %v, want %s", got, want)
	}
}

func TestListeners_Unsubscribe(t *testing.T) {
	var ls Listeners
	calls := 0
	unsubscribe := ls.Subscribe(func(any, Event) { calls++ })
	keep := ls.Subscribe(func(any, Event) {})
	defer keep()

	unsubscribe()
	unsubscribe()
	ls.Emit(nil, AudioDecoderChanged{})

	if calls != 0 {
		t.Errorf("removed listener called %d times", calls)
	}
	if ls.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ls.Len())
	}
}

func TestListeners_UnsubscribeDuringEmit(t *testing.T) {
	var ls Listeners
	var unsubscribe func()
	calls := 0
	unsubscribe = ls.Subscribe(func(any, Event) {
		calls++
		unsubscribe()
	})

	ls.Emit(nil, PlaybackInfoChanged{})
	ls.Emit(nil, PlaybackInfoChanged{})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
