package engine

import (
	"time"

	"selfplay/evaluator"
	"selfplay/game"
	"selfplay/searcher"

	"github.com/google/uuid"
)

// OtherGameProperties records how the start of a game was seeded.
type OtherGameProperties struct {
	IsSgfPos        bool
	IsHintPos       bool
	AllowPolicyInit bool
	IsFork          bool
	IsHintFork      bool

	HintLoc     game.Loc
	HintTurn    int
	HintPosHash game.Hash

	TrainingWeight float64

	PlayoutDoublingAdvantage    float64
	PlayoutDoublingAdvantagePla game.Player
}

func DefaultOtherGameProperties() OtherGameProperties {
	return OtherGameProperties{
		AllowPolicyInit: true,
		HintLoc:         game.NullLoc,
		TrainingWeight:  1.0,
	}
}

// BotSpec is one side of a matchup. Evaluator is replaced when a newer one is picked up
// mid-game.
type BotSpec struct {
	Name      string
	Index     int
	Evaluator evaluator.Evaluator
	Params    searcher.Params
}

type Mode int

const (
	ModeNormal Mode = iota
	ModeCleanupTraining
	ModeFork
	ModeHandicap
	ModeSgfPos
	ModeHintPos
	ModeHintFork
	ModeAsym
)

func (m Mode) String() string {
	return [...]string{"normal", "cleanup", "fork", "handicap", "sgfpos", "hintpos", "hintfork", "asym"}[m]
}

// ValueTargets are from White's perspective.
type ValueTargets struct {
	Win      float64
	Loss     float64
	NoResult float64
	Score    float64
	HasLead  bool
	Lead     float64
}

type QValueTarget struct {
	Loc     game.Loc
	WinLoss float64
	Score   float64
	Visits  int64
}

type PolicyTargetMove struct {
	Loc    game.Loc
	Weight int16
}

// PolicyTarget holds the quantized search distribution of a turn. Moves is nil when full data is
// not recorded.
type PolicyTarget struct {
	Moves              []PolicyTargetMove
	UnreducedNumVisits int64
}

type NNRawStats struct {
	WhiteWinLoss   float64
	WhiteScoreMean float64
	PolicyEntropy  float64
}

// SidePosition is a position off the main line that gets its own search and training row.
type SidePosition struct {
	State game.State
	Pla   game.Player

	PolicyTarget   []PolicyTargetMove
	ValueTargets   ValueTargets
	QValueTargets  []QValueTarget
	PolicySurprise float64
	PolicyEntropy  float64
	SearchEntropy  float64
	NNRawStats     NNRawStats

	TargetWeight          float64
	TargetWeightUnrounded float64
	UnreducedNumVisits    int64

	NumEvaluatorChangesSoFar int

	PlayoutDoublingAdvantage    float64
	PlayoutDoublingAdvantagePla game.Player
}

type ChangedEvaluator struct {
	Name    string
	TurnIdx int
}

// FinishedGameData accumulates everything recorded about one game. It is owned by the driver
// until RunGame returns, then by the caller.
type FinishedGameData struct {
	GameID   uuid.UUID
	GameHash [2]uint64

	BName string
	WName string
	BIdx  int
	WIdx  int

	StartState game.State
	StartPla   game.Player
	EndState   game.State

	DrawEquivalentWinsForWhite  float64
	PlayoutDoublingAdvantagePla game.Player
	PlayoutDoublingAdvantage    float64

	HitTurnLimit        bool
	NumExtraBlack       int
	HandicapForSgf      int
	Mode                Mode
	BeganInEncorePhase  int
	UsedInitialPosition bool
	TrainingWeight      float64

	BMoveCount int
	WMoveCount int
	BTimeUsed  time.Duration
	WTimeUsed  time.Duration

	HasFullData bool

	// Per turn, except WhiteValueTargetsByTurn which has one more terminal entry
	TargetWeightByTurn          []float64
	TargetWeightByTurnUnrounded []float64
	PolicyTargetsByTurn         []PolicyTarget
	WhiteValueTargetsByTurn     []ValueTargets
	WhiteQValueTargetsByTurn    [][]QValueTarget
	NNRawStatsByTurn            []NNRawStats
	PolicySurpriseByTurn        []float64
	PolicyEntropyByTurn         []float64
	SearchEntropyByTurn         []float64

	// Sized game.MaxArea, indexed by location
	FinalFullArea  []game.Player
	FinalOwnership []game.Player
	FinalSekiAreas []bool

	SidePositions     []*SidePosition
	ChangedEvaluators []ChangedEvaluator
}

func newFinishedGameData() *FinishedGameData {
	return &FinishedGameData{
		GameID:         uuid.New(),
		TrainingWeight: 1.0,
	}
}

// NumTurns is the number of moves played by the bots, excluding the seeded prefix.
func (d *FinishedGameData) NumTurns() int {
	return len(d.EndState.Moves()) - len(d.StartState.Moves())
}

// Hooks are optional callbacks invoked synchronously by the driver.
type Hooks struct {
	// OnEachMove is called after a move is chosen and before it is played
	OnEachMove func(state game.State, loc game.Loc, winLosses, leads, scoreStdevs []float64, bot searcher.Search)
	// CheckForNewEvaluator returns a replacement evaluator or nil
	CheckForNewEvaluator func() evaluator.Evaluator
	// AfterInitialization is called once the searches of a game are built
	AfterInitialization func(botB, botW searcher.Search)
}
