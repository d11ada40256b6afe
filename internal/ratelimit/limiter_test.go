package ratelimit

import (
	"testing"
	"time"
)

func TestBucket_BurstThenDeny(t *testing.T) {
	b := NewBucket(Config{RequestsPerSecond: 1, BurstSize: 3, Enabled: true})

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if b.Allow() {
		t.Error("request beyond burst should be denied")
	}
}

func TestBucket_Refills(t *testing.T) {
	b := NewBucket(Config{RequestsPerSecond: 100, BurstSize: 1, Enabled: true})

	if !b.Allow() {
		t.Fatal("first request should be allowed")
	}
	if b.Allow() {
		t.Fatal("bucket should be empty")
	}

	// 100 tokens/s refills one token well within 50ms.
	time.Sleep(50 * time.Millisecond)
	if !b.Allow() {
		t.Error("bucket should have refilled")
	}
}

func TestBucket_DisabledAlwaysAllows(t *testing.T) {
	b := NewBucket(Config{RequestsPerSecond: 1, BurstSize: 1, Enabled: false})
	for i := 0; i < 100; i++ {
		if !b.Allow() {
			t.Fatal("disabled bucket must always allow")
		}
	}
}

func TestBucket_NilAllows(t *testing.T) {
	var b *Bucket
	if !b.Allow() {
		t.Error("nil bucket must allow")
	}
}
