package game

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// PositionSample is a curated starting position: an initial board, a move prefix to replay on it,
// and optionally a hint move the search is expected to find afterwards.
type PositionSample struct {
	XSize             int
	YSize             int
	Stones            []Player
	NextPla           Player
	InitialTurnNumber int
	Moves             []Move
	HintLoc           Loc
	Weight            float64
	TrainingWeight    float64
}

type positionSampleJSON struct {
	InitialTurnNumber int      `json:"initialTurnNumber"`
	MoveLocs          []string `json:"moveLocs"`
	MovePlas          []string `json:"movePlas"`
	XSize             int      `json:"xSize"`
	YSize             int      `json:"ySize"`
	NextPla           string   `json:"nextPla"`
	Board             string   `json:"board"`
	HintLoc           string   `json:"hintLoc"`
	Weight            *float64 `json:"weight,omitempty"`
	TrainingWeight    *float64 `json:"trainingWeight,omitempty"`
}

// ParsePositionSample decodes one JSON line of a poses file.
func ParsePositionSample(line []byte) (PositionSample, error) {
	var raw positionSampleJSON
	if err := json.Unmarshal(line, &raw); err != nil {
		return PositionSample{}, fmt.Errorf("failed to decode position sample: %w", err)
	}
	if raw.XSize < 1 || raw.YSize < 1 || raw.XSize > MaxLen || raw.YSize > MaxLen {
		return PositionSample{}, fmt.Errorf("unsupported position sample size %dx%d", raw.XSize, raw.YSize)
	}
	if len(raw.MoveLocs) != len(raw.MovePlas) {
		return PositionSample{}, fmt.Errorf("position sample has %d move locations but %d move players", len(raw.MoveLocs), len(raw.MovePlas))
	}

	s := PositionSample{
		XSize:             raw.XSize,
		YSize:             raw.YSize,
		InitialTurnNumber: raw.InitialTurnNumber,
		Weight:            1.0,
		TrainingWeight:    1.0,
	}
	if raw.Weight != nil {
		s.Weight = *raw.Weight
	}
	if raw.TrainingWeight != nil {
		s.TrainingWeight = *raw.TrainingWeight
	}

	pla, ok := ParsePlayer(raw.NextPla)
	if !ok {
		return PositionSample{}, fmt.Errorf("invalid next player %q", raw.NextPla)
	}
	s.NextPla = pla

	stones, err := parseBoard(raw.Board, raw.XSize, raw.YSize)
	if err != nil {
		return PositionSample{}, err
	}
	s.Stones = stones

	for i := range raw.MoveLocs {
		loc, err := ParseLoc(raw.MoveLocs[i], raw.XSize, raw.YSize)
		if err != nil {
			return PositionSample{}, err
		}
		movePla, ok := ParsePlayer(raw.MovePlas[i])
		if !ok {
			return PositionSample{}, fmt.Errorf("invalid move player %q", raw.MovePlas[i])
		}
		s.Moves = append(s.Moves, Move{Loc: loc, Pla: movePla})
	}

	s.HintLoc, err = ParseLoc(raw.HintLoc, raw.XSize, raw.YSize)
	if err != nil {
		return PositionSample{}, err
	}
	return s, nil
}

// parseBoard reads rows separated by '/' or newlines, using X for black, O for white, '.' for empty.
func parseBoard(board string, xSize, ySize int) ([]Player, error) {
	rows := strings.FieldsFunc(board, func(r rune) bool { return r == '/' || r == '\n' })
	if len(rows) != ySize {
		return nil, fmt.Errorf("board has %d rows, expected %d", len(rows), ySize)
	}
	stones := make([]Player, xSize*ySize)
	for y, row := range rows {
		row = strings.TrimSpace(row)
		if len(row) != xSize {
			return nil, fmt.Errorf("board row %d has %d cells, expected %d", y, len(row), xSize)
		}
		for x, c := range row {
			switch c {
			case 'X', 'x':
				stones[MakeLoc(x, y, xSize)] = Black
			case 'O', 'o':
				stones[MakeLoc(x, y, xSize)] = White
			case '.':
			default:
				return nil, fmt.Errorf("invalid board character %q", c)
			}
		}
	}
	return stones, nil
}

// CurrentTurnNumber is the turn number after the move prefix has been played.
func (s PositionSample) CurrentTurnNumber() int {
	return s.InitialTurnNumber + len(s.Moves)
}

// ContentHash identifies a sample by its position content, ignoring weights.
func (s PositionSample) ContentHash() Hash {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(s.InitialTurnNumber))
	for _, m := range s.Moves {
		fmt.Fprintf(&sb, "$%s%d", m.Pla, m.Loc)
	}
	fmt.Fprintf(&sb, "$%d$%d$%s$", s.XSize, s.YSize, s.NextPla)
	for _, st := range s.Stones {
		sb.WriteString(st.String())
	}
	fmt.Fprintf(&sb, "$%d", s.HintLoc)

	hasher := fnv.New64a()
	hasher.Write([]byte(sb.String()))
	return Hash(hasher.Sum64())
}

// InitialState builds the board before the move prefix, with a fresh history under rules.
func (s PositionSample) InitialState(rules Rules) State {
	b := NewBoard(s.XSize, s.YSize, rules)
	copy(b.stones, s.Stones)
	return b.ClearHistory(s.NextPla, 0).WithInitialTurnNumber(s.InitialTurnNumber)
}
