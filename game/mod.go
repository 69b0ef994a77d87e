package game

type Player int8

const (
	Empty Player = iota
	Black
	White
)

func (p Player) Opp() Player {
	switch p {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (p Player) String() string {
	switch p {
	case Black:
		return "B"
	case White:
		return "W"
	default:
		return "."
	}
}

// ParsePlayer accepts "B"/"W" as well as the long forms.
func ParsePlayer(s string) (Player, bool) {
	switch s {
	case "B", "b", "black", "Black", "BLACK":
		return Black, true
	case "W", "w", "white", "White", "WHITE":
		return White, true
	}
	return Empty, false
}

type Move struct {
	Loc Loc
	Pla Player
}

type Hash uint64

// Result describes how a game ended. Winner is Empty for a draw or no result.
type Result struct {
	Finished        bool
	Scored          bool
	NoResult        bool
	Resigned        bool
	Winner          Player
	WhiteMinusBlack float64 // Final score from White's perspective, komi included
}

// State is a board together with its history and rules. It is immutable: every operation that
// changes the position returns a new State.
type State interface {
	XSize() int
	YSize() int
	// Area is the number of cells on the board
	Area() int
	Rules() Rules
	Komi() float32
	// Player is the player to move
	Player() Player
	EncorePhase() int
	InitialTurnNumber() int
	// Moves is the history since the last clear. Callers must not modify it.
	Moves() []Move
	// Hash identifies the stone configuration, independent of history and player to move
	Hash() Hash
	At(loc Loc) Player

	IsLegal(loc Loc, pla Player) bool
	// Play applies a move assumed to be legal
	Play(loc Loc, pla Player) State
	IsFinished() bool
	Result() Result
	Resign(winner Player) State
	// EndIfAllPassAlive ends and scores the game if nothing on the board can change any more
	EndIfAllPassAlive() State
	// EndAndScore ends the game now and returns the final ownership per cell. Idempotent.
	EndAndScore() (State, []Player)
	// FullArea is the owner of every cell including stones in seki
	FullArea() []Player
	// IndependentLifeArea is FullArea without groups that only live through seki
	IndependentLifeArea() []Player

	WithKomi(komi float32) State
	WithRules(rules Rules) State
	WithInitialTurnNumber(turn int) State
	// ClearHistory keeps the stones and starts a fresh history with pla to move
	ClearHistory(pla Player, encorePhase int) State
	// StartState is the position at the last history clear
	StartState() State

	String() string
}

// NumHandicapStones counts the stones black was granted at the start of the game, or 0 if the
// start position does not look like a handicap setup.
func NumHandicapStones(s State) int {
	start := s.StartState()
	blacks, whites := 0, 0
	for loc := Loc(0); int(loc) < start.Area(); loc++ {
		switch start.At(loc) {
		case Black:
			blacks++
		case White:
			whites++
		}
	}
	if whites > 0 || blacks < 2 {
		return 0
	}
	return blacks
}
