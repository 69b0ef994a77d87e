package searcher

import (
	"selfplay/evaluator"
	"selfplay/game"
)

// NodeRef is a handle to a node of the current search tree. Handles are invalidated by
// ClearSearch, SetPosition and by a MakeMove that drops the subtree holding them.
type NodeRef int32

const NoNode NodeRef = -1

type Child struct {
	Loc  game.Loc
	Node NodeRef
}

// Values are averaged search results at a node, from White's perspective.
type Values struct {
	WinValue           float64
	LossValue          float64
	NoResultValue      float64
	WinLossValue       float64
	ExpectedScore      float64
	ExpectedScoreStdev float64
	Lead               float64
	Visits             int64
}

type Params struct {
	MaxVisits                   int64
	MaxPlayouts                 int64
	Threads                     int
	CPuct                       float64
	RootNoiseEnabled            bool
	RootDirichletNoiseWeight    float64
	ChosenMoveTemperature       float64
	UseLcbForSelection          bool
	PlayoutDoublingAdvantage    float64
	PlayoutDoublingAdvantagePla game.Player
	DrawEquivalentWinsForWhite  float64
	NoResultUtilityForWhite     float64
}

func DefaultParams() Params {
	return Params{
		MaxVisits:                  200,
		MaxPlayouts:                1 << 40,
		Threads:                    1,
		CPuct:                      1.1,
		RootDirichletNoiseWeight:   0.25,
		DrawEquivalentWinsForWhite: 0.5,
	}
}

// Search is the tree search collaborator driven by the game loop. It is used by one game at a
// time; its methods are not safe for concurrent callers.
type Search interface {
	SetPosition(state game.State)
	RootState() game.State
	// MakeMove advances the root, reusing the subtree if possible. It reports false if the move is
	// illegal at the root.
	MakeMove(loc game.Loc, pla game.Player) bool
	ClearSearch()
	Params() Params
	SetParams(params Params)
	Evaluator() evaluator.Evaluator
	SetEvaluator(eval evaluator.Evaluator)
	SetKomiIfNew(komi float32)
	// SetRootHintLoc forces exploration of loc at the root until it is unset with game.NullLoc
	SetRootHintLoc(loc game.Loc)
	RunWholeSearchAndGetMove(pla game.Player) game.Loc

	Root() NodeRef
	Children(node NodeRef) []Child
	// NodeVisits is an atomic snapshot of the visit count
	NodeVisits(node NodeRef) int64
	NodeValues(node NodeRef) (Values, bool)
	RootValues() (Values, bool)
	PlaySelectionValues(node NodeRef, scaleMaxToAtLeast float64) ([]game.Loc, []float64, bool)
	PolicySurpriseAndEntropy(node NodeRef) (surprise, searchEntropy, policyEntropy float64, ok bool)
	RootRawOutput() *evaluator.Output
}

// Factory builds a fresh search for one bot of one game.
type Factory func(params Params, eval evaluator.Evaluator, seed string) Search
