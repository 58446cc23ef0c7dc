package usecase

import (
	"sync"

	"livetrans/internal/ports"
)

type activeSession struct {
	cancel func()
	audio  ports.AudioSession
	stream ports.LiveSession

	reconciler *reconciler
	playback   *playbackScheduler

	eventsDone chan struct{}
	audioDone  chan struct{}

	closeMu sync.Mutex
	closing bool
}

// beginClose reports whether the caller is the first to tear this session
// down. Teardown from Disconnect and from the dispatcher race; exactly one
// wins.
func (s *activeSession) beginClose() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closing {
		return false
	}
	s.closing = true
	return true
}
