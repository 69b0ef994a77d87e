package engine

import (
	"errors"
	"fmt"
	"strings"

	"selfplay/game"
	"selfplay/searcher"

	"github.com/rs/zerolog/log"
)

var ErrIllegalMove = errors.New("search returned a null or illegal move")

// InvariantError reports a broken collaborator. It is never retried.
type InvariantError struct {
	Err  error
	Dump string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v\n%s", e.Err, e.Dump)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func failIllegalMove(bot searcher.Search, state game.State, loc game.Loc) error {
	var sb strings.Builder
	sb.WriteString(state.String())
	sb.WriteString("\n")
	root := bot.RootState()
	if root != nil {
		sb.WriteString(root.String())
		fmt.Fprintf(&sb, "\nPla: %s\n", root.Player())
	}
	fmt.Fprintf(&sb, "Loc: %s\nRules: %s\n", game.LocString(loc, state.XSize(), state.YSize()), state.Rules())

	log.Error().Str("loc", game.LocString(loc, state.XSize(), state.YSize())).Msg(sb.String())
	return &InvariantError{Err: ErrIllegalMove, Dump: sb.String()}
}
