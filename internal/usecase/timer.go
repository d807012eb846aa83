package usecase

import (
	"sync"
	"time"
)

// TimerPurpose distinguishes the two delayed actions a pending booking can
// carry.
type TimerPurpose string

const (
	TimerNotify TimerPurpose = "notify"
	TimerExpire TimerPurpose = "expire"
)

type timerKey struct {
	ChannelID string
	Purpose   TimerPurpose
}

// TimerTable owns the delayed notify/expire actions for pending bookings.
// Timers live in process memory only and are lost on restart; a fired
// callback must re-check its preconditions because the conversation may have
// moved on while the timer was pending.
type TimerTable struct {
	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

func NewTimerTable() *TimerTable {
	return &TimerTable{timers: make(map[timerKey]*time.Timer)}
}

// Schedule arms fn to run after d, replacing any timer already armed for the
// same channel and purpose.
func (t *TimerTable) Schedule(channelID string, purpose TimerPurpose, d time.Duration, fn func()) {
	key := timerKey{ChannelID: channelID, Purpose: purpose}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.timers[key]; ok {
		prev.Stop()
	}
	t.timers[key] = time.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()
		fn()
	})
}

// Cancel stops one pending timer. Cancelling an absent timer is a no-op.
func (t *TimerTable) Cancel(channelID string, purpose TimerPurpose) {
	key := timerKey{ChannelID: channelID, Purpose: purpose}
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
}

// CancelAll stops every pending timer for a channel.
func (t *TimerTable) CancelAll(channelID string) {
	t.Cancel(channelID, TimerNotify)
	t.Cancel(channelID, TimerExpire)
}

// Pending reports whether a timer is armed, used by tests and the dispatcher
// precondition checks.
func (t *TimerTable) Pending(channelID string, purpose TimerPurpose) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[timerKey{ChannelID: channelID, Purpose: purpose}]
	return ok
}

// Stop cancels everything, for shutdown.
func (t *TimerTable) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
