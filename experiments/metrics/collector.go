package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type MoveMetric struct {
	Step         int
	Player       string
	Move         string
	Duration     time.Duration
	Playouts     int64
	FullPlayouts int64
	TreeReused   bool
}

type GameMetric struct {
	ID                  uuid.UUID
	Black               string // Bot name
	White               string // Bot name
	Mode                string
	Winner              string
	Resigned            bool
	UsedInitialPosition bool
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
	TotalMoves          int
	SidePositions       int
}

type Stats struct {
	GamesFinished int64
	Moves         int64
	Resignations  int64
	SidePositions int64
}

// Collector gathers game and move records from every worker.
type Collector interface {
	AddMove(game uuid.UUID, metric MoveMetric)
	AddGame(metric GameMetric)
	Stats() Stats
	GameRecords() []GameRecord
	MoveRecords() []MoveRecord
}

type collector struct {
	recordMoves bool

	gamesFinished atomic.Int64
	moves         atomic.Int64
	resignations  atomic.Int64
	sidePositions atomic.Int64

	mu          sync.Mutex
	gameRecords []GameRecord
	moveRecords []MoveRecord
}

// NewCollector keeps every game record, and move records too if recordMoves is set.
func NewCollector(recordMoves bool) Collector {
	return &collector{recordMoves: recordMoves}
}

func (c *collector) AddMove(game uuid.UUID, metric MoveMetric) {
	c.moves.Add(1)
	movesPlayed.Inc()
	if !c.recordMoves {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveRecords = append(c.moveRecords, MoveRecord{Game: game, MoveMetric: metric})
}

func (c *collector) AddGame(metric GameMetric) {
	c.gamesFinished.Add(1)
	c.sidePositions.Add(int64(metric.SidePositions))
	if metric.Resigned {
		c.resignations.Add(1)
	}
	observeGame(metric)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameRecords = append(c.gameRecords, GameRecord{Index: len(c.gameRecords) + 1, GameMetric: metric})
}

func (c *collector) Stats() Stats {
	return Stats{
		GamesFinished: c.gamesFinished.Load(),
		Moves:         c.moves.Load(),
		Resignations:  c.resignations.Load(),
		SidePositions: c.sidePositions.Load(),
	}
}

func (c *collector) GameRecords() []GameRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]GameRecord(nil), c.gameRecords...)
}

func (c *collector) MoveRecords() []MoveRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MoveRecord(nil), c.moveRecords...)
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (c *dummyCollector) AddMove(uuid.UUID, MoveMetric) {}
func (c *dummyCollector) AddGame(GameMetric)            {}
func (c *dummyCollector) Stats() Stats                  { return Stats{} }
func (c *dummyCollector) GameRecords() []GameRecord     { return nil }
func (c *dummyCollector) MoveRecords() []MoveRecord     { return nil }
