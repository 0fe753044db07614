package services

import "sync"

// tournamentLocker serialises engine calls per tournament inside one process.
// Row locks taken in the transaction cover other processes.
type tournamentLocker struct {
	mu    sync.Mutex
	locks map[int]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTournamentLocker() *tournamentLocker {
	return &tournamentLocker{locks: make(map[int]*lockEntry)}
}

// Lock blocks until the tournament is free and returns the release func.
func (l *tournamentLocker) Lock(tournamentID int) func() {
	l.mu.Lock()
	e, ok := l.locks[tournamentID]
	if !ok {
		e = &lockEntry{}
		l.locks[tournamentID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, tournamentID)
		}
		l.mu.Unlock()
	}
}
