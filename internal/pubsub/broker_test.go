package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan []byte) []string {
	var got []string
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, string(msg))
		case <-time.After(100 * time.Millisecond):
			return got
		}
	}
}

func TestSubscribeReplaysHistory(t *testing.T) {
	b := GetBroker()
	topic := "sync:u-replay:codeforces"
	defer b.CloseTopic(topic)

	b.Publish(topic, FormatMessage("validate", "checking handle"))
	b.Publish(topic, FormatMessage("profile", "profile saved"))

	ch, unsubscribe := b.Subscribe(topic)
	defer unsubscribe()

	got := drain(ch)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "validate")
	assert.Contains(t, got[1], "profile")
}

func TestSubscribeThenLiveMessages(t *testing.T) {
	b := GetBroker()
	topic := "sync:u-live:leetcode"
	defer b.CloseTopic(topic)

	ch, unsubscribe := b.Subscribe(topic)
	defer unsubscribe()

	b.Publish(topic, FormatMessage("submissions", "imported 3"))

	got := drain(ch)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "submissions")
}

func TestUnsubscribeRightAfterSubscribeWithHistory(t *testing.T) {
	b := GetBroker()
	topic := "sync:u-race:codeforces"
	defer b.CloseTopic(topic)

	for i := 0; i < 10; i++ {
		b.Publish(topic, FormatMessage("activity", "day rebuilt"))
	}

	// History replay must be complete before Subscribe returns, so closing
	// immediately cannot race a pending send.
	ch, unsubscribe := b.Subscribe(topic)
	unsubscribe()

	got := drain(ch)
	assert.Len(t, got, 10, "buffered history survives the close")
}

func TestCloseTopicThenUnsubscribeIsSafe(t *testing.T) {
	b := GetBroker()
	topic := "sync:u-close:leetcode"

	ch, unsubscribe := b.Subscribe(topic)
	b.CloseTopic(topic)

	// The channel is closed exactly once; a late unsubscribe is a no-op.
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
}

func TestPublishToFullSubscriberDoesNotBlock(t *testing.T) {
	b := GetBroker()
	topic := "sync:u-full:codeforces"
	defer b.CloseTopic(topic)

	ch, unsubscribe := b.Subscribe(topic)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			b.Publish(topic, []byte("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.NotEmpty(t, drain(ch))
}
