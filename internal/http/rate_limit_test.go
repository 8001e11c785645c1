package httpx

import (
	"testing"
	"time"
)

func TestMemoryRateLimiterEnforcesLimit(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		decision := rl.Allow("ip:10.0.0.1", 3, time.Minute)
		if !decision.allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if decision.count != i {
			t.Fatalf("request %d counted as %d", i, decision.count)
		}
	}

	decision := rl.Allow("ip:10.0.0.1", 3, time.Minute)
	if decision.allowed {
		t.Fatal("fourth request should be rejected")
	}
	if decision.windowEnd.Before(time.Now()) {
		t.Fatal("rejection must carry a future window end")
	}
}

func TestMemoryRateLimiterIsolatesKeys(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 3; i++ {
		rl.Allow("ip:10.0.0.1", 3, time.Minute)
	}
	if decision := rl.Allow("ip:10.0.0.2", 3, time.Minute); !decision.allowed {
		t.Fatal("a different key must not share the exhausted budget")
	}
}

func TestMemoryRateLimiterResetsAfterWindow(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 2; i++ {
		rl.Allow("ip:10.0.0.1", 2, 20*time.Millisecond)
	}
	if decision := rl.Allow("ip:10.0.0.1", 2, 20*time.Millisecond); decision.allowed {
		t.Fatal("budget should be exhausted inside the window")
	}

	time.Sleep(30 * time.Millisecond)
	if decision := rl.Allow("ip:10.0.0.1", 2, 20*time.Millisecond); !decision.allowed {
		t.Fatal("window expiry should reset the budget")
	}
}

func TestMemoryRateLimiterZeroLimitMeansUnlimited(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 50; i++ {
		if decision := rl.Allow("ip:10.0.0.1", 0, time.Minute); !decision.allowed {
			t.Fatal("zero limit must never reject")
		}
	}
}
