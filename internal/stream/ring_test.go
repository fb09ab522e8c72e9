package stream

import (
	"sync"
	"testing"
	"time"
)

func TestRing_BasicSendReceive(t *testing.T) {
	r := NewRing[int](10)

	for i := 0; i < 5; i++ {
		if !r.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := r.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRing_DropsOldestWhenFull(t *testing.T) {
	r := NewRing[int](4)

	for i := 0; i < 10; i++ {
		r.Send(i)
	}

	stats := r.Stats()
	if stats.Capacity != 4 {
		t.Errorf("Capacity = %d, want 4 (ring must not grow)", stats.Capacity)
	}
	if stats.Dropped != 6 {
		t.Errorf("Dropped = %d, want 6", stats.Dropped)
	}

	// Survivors are the newest four, in order.
	for want := 6; want < 10; want++ {
		val, ok := r.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false, want %d", want)
		}
		if val != want {
			t.Errorf("received %d, want %d", val, want)
		}
	}
}

func TestRing_ReceiveBlocksUntilSend(t *testing.T) {
	r := NewRing[string](4)

	got := make(chan string, 1)
	go func() {
		val, _ := r.Receive()
		got <- val
	}()

	time.Sleep(10 * time.Millisecond)
	r.Send("hello")

	select {
	case val := <-got:
		if val != "hello" {
			t.Errorf("Receive() = %q, want hello", val)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() never returned")
	}
}

func TestRing_CloseDrainsThenSignals(t *testing.T) {
	r := NewRing[int](4)
	r.Send(1)
	r.Send(2)
	r.Close()

	if r.Send(3) {
		t.Error("Send() after Close() should return false")
	}

	if val, ok := r.Receive(); !ok || val != 1 {
		t.Errorf("Receive() = (%d, %v), want (1, true)", val, ok)
	}
	if val, ok := r.Receive(); !ok || val != 2 {
		t.Errorf("Receive() = (%d, %v), want (2, true)", val, ok)
	}
	if _, ok := r.Receive(); ok {
		t.Error("Receive() on closed empty ring should return false")
	}
}

func TestRing_ConcurrentProducersConsumers(t *testing.T) {
	r := NewRing[int](1024)
	const producers = 4
	const perProducer = 5000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				r.Send(i)
			}
		}()
	}

	var consumed int64
	var cwg sync.WaitGroup
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		for {
			if _, ok := r.Receive(); !ok {
				return
			}
			consumed++
		}
	}()

	wg.Wait()
	r.Close()
	cwg.Wait()

	stats := r.Stats()
	if stats.TotalIn != producers*perProducer {
		t.Errorf("TotalIn = %d, want %d", stats.TotalIn, producers*perProducer)
	}
	if consumed+stats.Dropped != stats.TotalIn {
		t.Errorf("consumed(%d) + dropped(%d) != in(%d)", consumed, stats.Dropped, stats.TotalIn)
	}
}

func TestRing_SendWaitBlocksInsteadOfDropping(t *testing.T) {
	r := NewRing[int](2)
	r.SendWait(0)
	r.SendWait(1)

	unblocked := make(chan struct{})
	go func() {
		r.SendWait(2)
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("SendWait returned while ring was full")
	case <-time.After(50 * time.Millisecond):
	}

	if v, ok := r.TryReceive(); !ok || v != 0 {
		t.Fatalf("TryReceive() = %d, %v, want 0, true", v, ok)
	}

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("SendWait did not resume after space freed")
	}

	// Nothing was evicted along the way.
	if st := r.Stats(); st.Dropped != 0 || st.TotalIn != 3 {
		t.Errorf("Stats() = %+v, want Dropped 0 TotalIn 3", st)
	}
	for want := 1; want <= 2; want++ {
		if v, ok := r.TryReceive(); !ok || v != want {
			t.Errorf("TryReceive() = %d, %v, want %d, true", v, ok, want)
		}
	}
}

func TestRing_SendWaitUnblocksOnClose(t *testing.T) {
	r := NewRing[int](1)
	r.SendWait(0)

	result := make(chan bool, 1)
	go func() {
		result <- r.SendWait(1)
	}()

	time.Sleep(20 * time.Millisecond)
	r.Close()

	select {
	case ok := <-result:
		if ok {
			t.Error("SendWait on closed ring returned true")
		}
	case <-time.After(time.Second):
		t.Fatal("SendWait did not return after Close")
	}
}
