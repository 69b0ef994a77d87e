package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func play(t *testing.T, s State, moves ...string) State {
	t.Helper()
	for _, m := range moves {
		loc, err := ParseLoc(m, s.XSize(), s.YSize())
		require.NoError(t, err)
		require.True(t, s.IsLegal(loc, s.Player()), "move %s should be legal", m)
		s = s.Play(loc, s.Player())
	}
	return s
}

func TestBoardPlay(t *testing.T) {
	t.Run("play returns a new state and leaves the old one untouched", func(t *testing.T) {
		b := NewBoard(9, 9, DefaultRules())
		next := play(t, b, "E5")

		require.Equal(t, Empty, b.At(MakeLoc(4, 4, 9)))
		require.Equal(t, Black, next.At(MakeLoc(4, 4, 9)))
		require.Equal(t, White, next.Player())
		require.Len(t, next.Moves(), 1)
		require.Empty(t, b.Moves())
	})

	t.Run("capturing removes the stone", func(t *testing.T) {
		s := play(t, NewBoard(5, 5, DefaultRules()), "A4", "A5", "B5")
		require.Equal(t, Empty, s.At(MakeLoc(0, 0, 5)), "white corner stone should be captured")
	})

	t.Run("single stone suicide is illegal", func(t *testing.T) {
		s := play(t, NewBoard(5, 5, DefaultRules()), "A4", "pass", "B5")
		loc, _ := ParseLoc("A5", 5, 5)
		require.False(t, s.IsLegal(loc, White))
	})

	t.Run("simple ko forbids immediate recapture", func(t *testing.T) {
		rules := DefaultRules()
		rules.KoRule = KoSimple
		s := play(t, NewBoard(5, 5, rules),
			"B5", "C5", "A4", "D4", "B3", "C3", "pass", "B4", "C4")
		require.Equal(t, Empty, s.At(MakeLoc(1, 1, 5)))
		loc := MakeLoc(1, 1, 5)
		require.False(t, s.IsLegal(loc, White), "immediate ko recapture must be illegal")
	})

	t.Run("two passes end and score the game", func(t *testing.T) {
		s := play(t, NewBoard(5, 5, DefaultRules()), "C3", "pass", "pass")
		require.True(t, s.IsFinished())
		res := s.Result()
		require.True(t, res.Scored)
		require.Equal(t, Black, res.Winner)
		require.InDelta(t, -25+7.5, res.WhiteMinusBlack, 1e-9)
	})

	t.Run("end and score is idempotent", func(t *testing.T) {
		s := play(t, NewBoard(5, 5, DefaultRules()), "C3")
		first, own1 := s.EndAndScore()
		second, own2 := first.EndAndScore()
		require.Equal(t, first.Result(), second.Result())
		require.Equal(t, own1, own2)
		require.False(t, s.IsFinished())
	})

	t.Run("resignation credits the winner", func(t *testing.T) {
		s := NewBoard(9, 9, DefaultRules()).Resign(White)
		require.True(t, s.IsFinished())
		require.True(t, s.Result().Resigned)
		require.Equal(t, White, s.Result().Winner)
	})
}

func TestBoardHistory(t *testing.T) {
	t.Run("start state is the position at the last clear", func(t *testing.T) {
		s := play(t, NewBoard(9, 9, DefaultRules()), "E5", "D4")
		cleared := s.ClearHistory(Black, 0)
		more := play(t, cleared, "C3")

		start := more.StartState()
		require.Empty(t, start.Moves())
		require.Equal(t, cleared.Hash(), start.Hash())
		require.Equal(t, Black, start.Player())
	})

	t.Run("positional superko forbids repeating a position", func(t *testing.T) {
		s := play(t, NewBoard(5, 5, DefaultRules()),
			"B5", "C5", "A4", "D4", "B3", "C3", "pass", "B4", "C4")
		require.False(t, s.IsLegal(MakeLoc(1, 1, 5), White))
	})
}

func TestScoring(t *testing.T) {
	t.Run("shared region is unowned", func(t *testing.T) {
		s := play(t, NewBoard(3, 1, DefaultRules()), "A1", "C1")
		area := s.FullArea()
		require.Equal(t, []Player{Black, Empty, White}, area)
		ind := s.IndependentLifeArea()
		require.Equal(t, []Player{Empty, Empty, Empty}, ind)
	})

	t.Run("two-eyed groups end the game early", func(t *testing.T) {
		var s State = NewBoard(5, 5, DefaultRules())
		for _, m := range []string{"C1", "C2", "C3", "C4", "C5", "B3", "A3"} {
			loc, _ := ParseLoc(m, 5, 5)
			s = s.Play(loc, Black)
		}
		for _, m := range []string{"D1", "D2", "D3", "D4", "D5", "E3"} {
			loc, _ := ParseLoc(m, 5, 5)
			s = s.Play(loc, White)
		}
		require.False(t, s.IsFinished())

		s = s.EndIfAllPassAlive()
		require.True(t, s.IsFinished())
		require.Equal(t, White, s.Result().Winner)
		require.InDelta(t, 10-15+7.5, s.Result().WhiteMinusBlack, 1e-9)
	})

	t.Run("empty board is not pass alive", func(t *testing.T) {
		s := NewBoard(5, 5, DefaultRules()).EndIfAllPassAlive()
		require.False(t, s.IsFinished())
	})
}

func TestParseLoc(t *testing.T) {
	loc, err := ParseLoc("D4", 19, 19)
	require.NoError(t, err)
	require.Equal(t, MakeLoc(3, 15, 19), loc)
	require.Equal(t, "D4", LocString(loc, 19, 19))

	loc, err = ParseLoc("J1", 19, 19)
	require.NoError(t, err)
	require.Equal(t, MakeLoc(8, 18, 19), loc)

	loc, err = ParseLoc("pass", 9, 9)
	require.NoError(t, err)
	require.Equal(t, PassLoc, loc)

	loc, err = ParseLoc("", 9, 9)
	require.NoError(t, err)
	require.Equal(t, NullLoc, loc)

	_, err = ParseLoc("Z99", 9, 9)
	require.Error(t, err)
}
