package audio

import (
	"context"
	"sync"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// PlaybackQueue plays decoded buffers back-to-back in enqueue order. The next
// buffer starts only when the player reports the previous one finished.
type PlaybackQueue struct {
	player domain.Player

	mu      sync.Mutex
	pending []domain.AudioBuffer
	playing bool
	stopped bool
	seq     uint64
	idle    chan struct{}
}

// NewPlaybackQueue returns an idle queue feeding player.
func NewPlaybackQueue(player domain.Player) *PlaybackQueue {
	idle := make(chan struct{})
	close(idle)
	return &PlaybackQueue{player: player, idle: idle}
}

// Enqueue appends buf. Playback starts immediately when the queue is idle.
// Buffers enqueued after Stop are dropped.
func (q *PlaybackQueue) Enqueue(buf domain.AudioBuffer) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	if q.playing {
		q.pending = append(q.pending, buf)
		q.mu.Unlock()
		return
	}
	q.playing = true
	q.idle = make(chan struct{})
	q.mu.Unlock()
	q.play(buf)
}

// play hands buf to the player outside the lock so a synchronous done
// callback cannot deadlock.
func (q *PlaybackQueue) play(buf domain.AudioBuffer) {
	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.mu.Unlock()
	q.player.Play(buf, func() { q.finished(seq) })
}

// finished advances to the next buffer. Duplicate or stale callbacks are ignored.
func (q *PlaybackQueue) finished(seq uint64) {
	q.mu.Lock()
	if seq != q.seq || !q.playing {
		q.mu.Unlock()
		return
	}
	if q.stopped || len(q.pending) == 0 {
		q.playing = false
		close(q.idle)
		q.mu.Unlock()
		return
	}
	next := q.pending[0]
	q.pending[0] = domain.AudioBuffer{}
	q.pending = q.pending[1:]
	q.mu.Unlock()
	q.play(next)
}

// Stop drops every pending buffer. The buffer currently playing is left to finish.
func (q *PlaybackQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.pending = nil
}

// Len reports how many buffers are waiting behind the one playing.
func (q *PlaybackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until the queue drains or ctx ends.
func (q *PlaybackQueue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
