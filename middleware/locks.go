package middleware

import "sync"

// GuildLocks hands out one mutex per guild. Cooldown configs do no locking
// of their own, so every host goroutine takes the guild's lock before
// evaluating or changing anything in it.
type GuildLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGuildLocks creates an empty lock set
func NewGuildLocks() *GuildLocks {
	return &GuildLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the guild's lock is held and returns its unlock func.
func (l *GuildLocks) Lock(guildID string) func() {
	l.mu.Lock()
	m, ok := l.locks[guildID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[guildID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

