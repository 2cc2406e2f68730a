package models

import (
	"testing"
	"time"
)

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{Base: 30 * time.Second, Max: 15 * time.Minute, MaxRetries: 5}

	tests := []struct {
		name       string
		retryCount int
		want       time.Duration
	}{
		{"first retry", 0, 30 * time.Second},
		{"second retry", 1, time.Minute},
		{"third retry", 2, 2 * time.Minute},
		{"fourth retry", 3, 4 * time.Minute},
		{"fifth retry", 4, 8 * time.Minute},
		{"capped", 5, 15 * time.Minute},
		{"stays capped", 20, 15 * time.Minute},
		{"negative treated as zero", -3, 30 * time.Second},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.Delay(tt.retryCount); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.retryCount, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_DelayMonotonic(t *testing.T) {
	t.Parallel()

	p := DefaultRetryPolicy
	prev := time.Duration(0)
	for i := 0; i < 12; i++ {
		d := p.Delay(i)
		if d < prev {
			t.Fatalf("Delay(%d) = %v shrank below Delay(%d) = %v", i, d, i-1, prev)
		}
		if d > p.Max {
			t.Fatalf("Delay(%d) = %v exceeds cap %v", i, d, p.Max)
		}
		prev = d
	}
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{Base: time.Second, Max: time.Minute, MaxRetries: 3}

	if p.Exhausted(2) {
		t.Error("Expected retryCount 2 not to be exhausted with 3 max retries")
	}
	if !p.Exhausted(3) {
		t.Error("Expected retryCount 3 to be exhausted with 3 max retries")
	}
	if !p.Exhausted(10) {
		t.Error("Expected retryCount 10 to be exhausted with 3 max retries")
	}
}

func TestValidChannel(t *testing.T) {
	t.Parallel()

	for _, c := range Channels {
		if !ValidChannel(c) {
			t.Errorf("Expected %s to be a valid channel", c)
		}
	}
	if ValidChannel("sms") {
		t.Error("Expected 'sms' to be invalid")
	}
	if ValidChannel("") {
		t.Error("Expected empty channel to be invalid")
	}
}
