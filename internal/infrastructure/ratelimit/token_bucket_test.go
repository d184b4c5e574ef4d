package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalBuckets_Take(t *testing.T) {
	// 2 tokens, one every 500ms
	l := newLocalBuckets(2, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	allowed, remaining, untilFull := l.take("ip:10.0.0.1", now)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, 500*time.Millisecond, untilFull)

	allowed, _, _ = l.take("ip:10.0.0.1", now)
	assert.True(t, allowed)
	allowed, remaining, untilFull = l.take("ip:10.0.0.1", now)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Equal(t, time.Second, untilFull)

	// Half a second later one token is back.
	allowed, _, _ = l.take("ip:10.0.0.1", now.Add(500*time.Millisecond))
	assert.True(t, allowed)

	// Other keys are untouched.
	allowed, remaining, _ = l.take("ip:10.0.0.2", now)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, 2, l.size())
}

func TestLocalBuckets_RefillIsCapped(t *testing.T) {
	l := newLocalBuckets(3, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	l.take("k", now)
	_, remaining, untilFull := l.take("k", now.Add(time.Hour))
	assert.Equal(t, 2, remaining)
	assert.Equal(t, time.Second, untilFull)
}

func TestLocalBuckets_IdleBucketsExpire(t *testing.T) {
	l := newLocalBuckets(1, 1, 20*time.Millisecond)
	l.take("k", time.Now())
	assert.Eventually(t, func() bool { return l.size() == 0 }, time.Second, 10*time.Millisecond)
}

//Personal.AI order the ending
