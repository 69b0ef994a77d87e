package game

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Board is a reference rules engine for Go: captures, suicide, simple ko and superko, game end
// after two passes, and area or territory counting. It implements State.
type Board struct {
	xSize, ySize int
	stones       []Player
	rules        Rules
	pla          Player
	koLoc        Loc

	moves             []Move
	history           []Hash   // Stone hashes of every position since the last clear
	historyPla        []Player // Player to move in each of those positions
	initialTurnNumber int
	encorePhase       int
	passes            int
	prisoners         [3]int // Stones captured by each player
	start             *Board
	result            Result
}

// NewBoard returns an empty board with black to move.
func NewBoard(xSize, ySize int, rules Rules) *Board {
	if xSize < 1 || ySize < 1 || xSize > MaxLen || ySize > MaxLen {
		panic(fmt.Sprintf("unsupported board size %dx%d", xSize, ySize))
	}
	b := &Board{
		xSize:  xSize,
		ySize:  ySize,
		stones: make([]Player, xSize*ySize),
		rules:  rules,
		pla:    Black,
		koLoc:  NullLoc,
	}
	b.history = []Hash{b.Hash()}
	b.historyPla = []Player{b.pla}
	return b
}

func (b *Board) clone() *Board {
	c := *b
	c.stones = append([]Player(nil), b.stones...)
	c.moves = append([]Move(nil), b.moves...)
	c.history = append([]Hash(nil), b.history...)
	c.historyPla = append([]Player(nil), b.historyPla...)
	c.start = b.startBoard()
	return &c
}

func (b *Board) startBoard() *Board {
	if b.start == nil {
		return b
	}
	return b.start
}

func (b *Board) XSize() int             { return b.xSize }
func (b *Board) YSize() int             { return b.ySize }
func (b *Board) Area() int              { return b.xSize * b.ySize }
func (b *Board) Rules() Rules           { return b.rules }
func (b *Board) Komi() float32          { return b.rules.Komi }
func (b *Board) Player() Player         { return b.pla }
func (b *Board) EncorePhase() int       { return b.encorePhase }
func (b *Board) InitialTurnNumber() int { return b.initialTurnNumber }
func (b *Board) Moves() []Move          { return b.moves }
func (b *Board) IsFinished() bool       { return b.result.Finished }
func (b *Board) Result() Result         { return b.result }

func (b *Board) At(loc Loc) Player {
	if !b.onBoard(loc) {
		return Empty
	}
	return b.stones[loc]
}

func (b *Board) Hash() Hash {
	return hashStones(b.xSize, b.ySize, b.stones)
}

func hashStones(xSize, ySize int, stones []Player) Hash {
	hasher := fnv.New64a()
	buf := make([]byte, 0, len(stones)+2)
	buf = append(buf, byte(xSize), byte(ySize))
	for _, s := range stones {
		buf = append(buf, byte(s))
	}
	hasher.Write(buf)
	return Hash(hasher.Sum64())
}

func (b *Board) onBoard(loc Loc) bool {
	return loc >= 0 && int(loc) < len(b.stones)
}

func (b *Board) neighbors(loc Loc, buf []Loc) []Loc {
	buf = buf[:0]
	x, y := loc.X(b.xSize), loc.Y(b.xSize)
	if x > 0 {
		buf = append(buf, loc-1)
	}
	if x < b.xSize-1 {
		buf = append(buf, loc+1)
	}
	if y > 0 {
		buf = append(buf, loc-Loc(b.xSize))
	}
	if y < b.ySize-1 {
		buf = append(buf, loc+Loc(b.xSize))
	}
	return buf
}

// chain returns the stones connected to loc and the number of distinct liberties.
func chain(b *Board, stones []Player, loc Loc) ([]Loc, int) {
	color := stones[loc]
	seen := map[Loc]bool{loc: true}
	libs := map[Loc]bool{}
	stack := []Loc{loc}
	group := []Loc{}
	var nbuf [4]Loc
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, cur)
		for _, n := range b.neighbors(cur, nbuf[:0]) {
			switch stones[n] {
			case Empty:
				libs[n] = true
			case color:
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return group, len(libs)
}

// place computes the stones after pla plays at loc, the number of captured stones, the single
// captured location if exactly one stone was taken, and how many own stones a suicide removed.
func (b *Board) place(loc Loc, pla Player) (stones []Player, captured int, capturedLoc Loc, suicided int) {
	stones = append([]Player(nil), b.stones...)
	stones[loc] = pla
	capturedLoc = NullLoc
	opp := pla.Opp()
	var nbuf [4]Loc
	for _, n := range b.neighbors(loc, nbuf[:0]) {
		if stones[n] != opp {
			continue
		}
		group, libs := chain(b, stones, n)
		if libs == 0 {
			for _, g := range group {
				stones[g] = Empty
			}
			if captured == 0 && len(group) == 1 {
				capturedLoc = group[0]
			} else {
				capturedLoc = NullLoc
			}
			captured += len(group)
		}
	}
	if captured == 0 {
		group, libs := chain(b, stones, loc)
		if libs == 0 {
			suicided = len(group)
			for _, g := range group {
				stones[g] = Empty
			}
			if len(group) == 1 {
				// Single stone suicide is never legal
				stones = nil
			}
		}
	}
	return stones, captured, capturedLoc, suicided
}

func (b *Board) IsLegal(loc Loc, pla Player) bool {
	if pla != Black && pla != White {
		return false
	}
	if loc == PassLoc {
		return true
	}
	if !b.onBoard(loc) || b.stones[loc] != Empty {
		return false
	}
	if b.rules.KoRule == KoSimple && loc == b.koLoc && pla == b.pla {
		return false
	}
	stones, _, _, suicided := b.place(loc, pla)
	if stones == nil {
		return false
	}
	if suicided > 0 && !b.rules.MultiStoneSuicideLegal {
		return false
	}
	switch b.rules.KoRule {
	case KoPositional:
		h := hashStones(b.xSize, b.ySize, stones)
		for _, prev := range b.history {
			if prev == h {
				return false
			}
		}
	case KoSituational:
		h := hashStones(b.xSize, b.ySize, stones)
		for i, prev := range b.history {
			if prev == h && b.historyPla[i] == pla.Opp() {
				return false
			}
		}
	}
	return true
}

func (b *Board) Play(loc Loc, pla Player) State {
	c := b.clone()
	c.moves = append(c.moves, Move{Loc: loc, Pla: pla})
	c.pla = pla.Opp()
	c.koLoc = NullLoc

	if loc == PassLoc {
		c.passes++
	} else {
		c.passes = 0
		stones, captured, capturedLoc, suicided := c.place(loc, pla)
		if stones == nil {
			panic(fmt.Sprintf("illegal single stone suicide at %s", LocString(loc, c.xSize, c.ySize)))
		}
		c.stones = stones
		c.prisoners[pla.Opp()] += suicided
		c.prisoners[pla] += captured
		if captured == 1 && capturedLoc != NullLoc {
			group, libs := chain(c, c.stones, loc)
			if len(group) == 1 && libs == 1 {
				c.koLoc = capturedLoc
			}
		}
	}
	c.history = append(c.history, c.Hash())
	c.historyPla = append(c.historyPla, c.pla)

	if c.passes >= 2 {
		c.score()
	}
	return c
}

func (b *Board) Resign(winner Player) State {
	c := b.clone()
	c.result = Result{Finished: true, Resigned: true, Winner: winner}
	return c
}

func (b *Board) EndIfAllPassAlive() State {
	if b.result.Finished || !b.allPassAlive() {
		return b
	}
	c := b.clone()
	c.score()
	return c
}

func (b *Board) EndAndScore() (State, []Player) {
	if b.result.Scored {
		return b, b.FullArea()
	}
	c := b.clone()
	c.score()
	return c, c.FullArea()
}

func (b *Board) score() {
	owner := b.FullArea()
	var counts [3]float64
	for loc, o := range owner {
		if o == Empty {
			continue
		}
		if b.rules.ScoringRule == ScoringTerritory && b.stones[loc] != Empty {
			continue
		}
		counts[o]++
	}
	if b.rules.ScoringRule == ScoringTerritory {
		counts[Black] += float64(b.prisoners[Black])
		counts[White] += float64(b.prisoners[White])
	}
	diff := counts[White] - counts[Black] + float64(b.rules.Komi)
	winner := Empty
	if diff > 0 {
		winner = White
	} else if diff < 0 {
		winner = Black
	}
	b.result = Result{Finished: true, Scored: true, Winner: winner, WhiteMinusBlack: diff}
}

func (b *Board) WithKomi(komi float32) State {
	c := b.clone()
	c.rules.Komi = komi
	return c
}

func (b *Board) WithRules(rules Rules) State {
	c := b.clone()
	c.rules = rules
	return c
}

func (b *Board) WithInitialTurnNumber(turn int) State {
	c := b.clone()
	c.initialTurnNumber = turn
	if c.start != nil && len(c.moves) == 0 {
		c.start = nil
	}
	return c
}

func (b *Board) ClearHistory(pla Player, encorePhase int) State {
	c := b.clone()
	c.start = nil
	c.pla = pla
	c.moves = nil
	c.passes = 0
	c.koLoc = NullLoc
	c.encorePhase = encorePhase
	c.prisoners = [3]int{}
	c.result = Result{}
	c.history = []Hash{c.Hash()}
	c.historyPla = []Player{pla}
	return c
}

func (b *Board) StartState() State {
	start := b.startBoard()
	if start == b {
		return b
	}
	c := start.clone()
	c.start = nil
	c.rules = b.rules
	return c
}

func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < b.ySize; y++ {
		for x := 0; x < b.xSize; x++ {
			switch b.stones[MakeLoc(x, y, b.xSize)] {
			case Black:
				sb.WriteByte('X')
			case White:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "rules %s next %s encore %d moves", b.rules, b.pla, b.encorePhase)
	for _, m := range b.moves {
		fmt.Fprintf(&sb, " %s%s", m.Pla, LocString(m.Loc, b.xSize, b.ySize))
	}
	return sb.String()
}
