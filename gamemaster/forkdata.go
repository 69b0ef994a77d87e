package gamemaster

import (
	"sync"

	"selfplay/game"
	"selfplay/meta"
	"selfplay/utils"
)

// InitialPosition is a saved position to start a future game from. Whoever takes it out of a
// ForkData owns it.
type InitialPosition struct {
	State          game.State
	Pla            game.Player
	IsPlainFork    bool
	IsSekiFork     bool
	IsHintFork     bool
	TrainingWeight float64
}

// ForkData holds positions harvested from finished games. Both pools share one lock. The seki
// pool is capped at meta.SEKI_FORK_CAPACITY, past which new entries replace random old ones.
type ForkData struct {
	mu        sync.Mutex
	forks     []*InitialPosition
	sekiForks []*InitialPosition
}

func NewForkData() *ForkData {
	return &ForkData{}
}

func (f *ForkData) Add(pos *InitialPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forks = append(f.forks, pos)
}

// Get removes and returns a uniformly random plain fork, or nil if there is none.
func (f *ForkData) Get(rand *utils.Rand) *InitialPosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return takeRandom(&f.forks, rand)
}

func (f *ForkData) AddSeki(pos *InitialPosition, rand *utils.Rand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sekiForks) >= meta.SEKI_FORK_CAPACITY {
		f.sekiForks[rand.Intn(len(f.sekiForks))] = pos
		return
	}
	f.sekiForks = append(f.sekiForks, pos)
}

func (f *ForkData) GetSeki(rand *utils.Rand) *InitialPosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return takeRandom(&f.sekiForks, rand)
}

func (f *ForkData) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.forks)
}

func (f *ForkData) SekiLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sekiForks)
}

// takeRandom swaps a random entry with the last one and shrinks the pool.
func takeRandom(pool *[]*InitialPosition, rand *utils.Rand) *InitialPosition {
	n := len(*pool)
	if n == 0 {
		return nil
	}
	p := *pool
	r := rand.Intn(n)
	pos := p[r]
	p[r] = p[n-1]
	p[n-1] = nil
	*pool = p[:n-1]
	return pos
}
