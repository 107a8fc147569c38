package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCheckoutNeverExceedsPoolSize(t *testing.T) {
	p := New(Options{Size: 3, CheckoutTimeout: 2 * time.Second})
	defer p.Close()

	const authority = "10.0.0.1:6443"
	var maxSeen int64
	var wg sync.WaitGroup
	const callers = 20

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			tr, err := p.Checkout(context.Background(), authority)
			if err != nil {
				t.Error(err)
				return
			}
			if n := int64(p.Count(authority)); n > atomic.LoadInt64(&maxSeen) {
				atomic.StoreInt64(&maxSeen, n)
			}
			time.Sleep(time.Millisecond)
			p.Checkin(authority, tr, false)
		}()
	}
	wg.Wait()

	if maxSeen > 3 {
		t.Errorf("pool exceeded its cap: saw %d live transports", maxSeen)
	}
	if got := p.InFlight(authority); got != 0 {
		t.Errorf("expected every checkout matched by a checkin, %d still in flight", got)
	}
}

func TestCheckinBrokenRetiresTransport(t *testing.T) {
	p := New(Options{Size: 2})
	defer p.Close()

	const authority = "broken-host:6443"
	tr, err := p.Checkout(context.Background(), authority)
	if err != nil {
		t.Fatal(err)
	}
	p.Checkin(authority, tr, true)

	if got := p.Count(authority); got != 0 {
		t.Errorf("expected broken transport retired, pool still holds %d", got)
	}
}

func TestCheckoutTimesOutWhenExhausted(t *testing.T) {
	p := New(Options{Size: 1, CheckoutTimeout: 50 * time.Millisecond})
	defer p.Close()

	const authority = "busy-host:6443"
	tr, err := p.Checkout(context.Background(), authority)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Checkin(authority, tr, false)

	_, err = p.Checkout(context.Background(), authority)
	if err == nil {
		t.Fatal("expected checkout to time out while the only slot is held")
	}
}
