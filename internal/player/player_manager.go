package player

import (
	"sync"
)

type PlayerManager struct {
	mu      sync.Mutex
	Players map[string]*Player
	newFn   func(guildID string) *Player
}

func NewPlayerManager(newFn func(guildID string) *Player) *PlayerManager {
	return &PlayerManager{Players: make(map[string]*Player), newFn: newFn}
}

func (pm *PlayerManager) Get(guildID string) *Player {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if p, ok := pm.Players[guildID]; ok {
		return p
	}
	p := pm.newFn(guildID)
	pm.Players[guildID] = p
	return p
}

func (pm *PlayerManager) Peek(guildID string) *Player {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.Players[guildID]
}

// ShutdownAll shuts down every player, used when the bot exits.
func (pm *PlayerManager) ShutdownAll() {
	pm.mu.Lock()
	ps := make([]*Player, 0, len(pm.Players))
	for _, p := range pm.Players {
		ps = append(ps, p)
	}
	pm.mu.Unlock()
	for _, p := range ps {
		p.Shutdown()
	}
}
