package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Loc is a board location x + y*xSize. Pass and Null are sentinels.
type Loc int

const (
	PassLoc Loc = -1
	NullLoc Loc = -2
)

const MaxLen = 19

// MaxArea sizes per-cell arrays that must fit any board
const MaxArea = MaxLen * MaxLen

const gtpColumns = "ABCDEFGHJKLMNOPQRST"

func MakeLoc(x, y, xSize int) Loc {
	return Loc(x + y*xSize)
}

func (l Loc) X(xSize int) int { return int(l) % xSize }
func (l Loc) Y(xSize int) int { return int(l) / xSize }

// PolicyPos maps a location to its index in a policy vector: board cells first, then pass.
func PolicyPos(loc Loc, xSize, ySize int) int {
	if loc == PassLoc {
		return xSize * ySize
	}
	return int(loc)
}

func PolicyLoc(pos, xSize, ySize int) Loc {
	if pos == xSize*ySize {
		return PassLoc
	}
	return Loc(pos)
}

func LocString(loc Loc, xSize, ySize int) string {
	switch loc {
	case PassLoc:
		return "pass"
	case NullLoc:
		return "null"
	}
	x, y := loc.X(xSize), loc.Y(xSize)
	if xSize > len(gtpColumns) {
		return fmt.Sprintf("(%d,%d)", x, y)
	}
	return fmt.Sprintf("%c%d", gtpColumns[x], ySize-y)
}

// ParseLoc reads GTP coordinates ("D4"), "(x,y)" pairs, "pass" and empty/"null".
func ParseLoc(s string, xSize, ySize int) (Loc, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch lower {
	case "", "null":
		return NullLoc, nil
	case "pass":
		return PassLoc, nil
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[1:len(s)-1], ",")
		if len(parts) != 2 {
			return NullLoc, fmt.Errorf("invalid location %q", s)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil || x < 0 || y < 0 || x >= xSize || y >= ySize {
			return NullLoc, fmt.Errorf("invalid location %q", s)
		}
		return MakeLoc(x, y, xSize), nil
	}

	x := strings.IndexByte(gtpColumns, strings.ToUpper(s)[0])
	row, err := strconv.Atoi(s[1:])
	if x < 0 || err != nil || x >= xSize || row < 1 || row > ySize {
		return NullLoc, fmt.Errorf("invalid location %q", s)
	}
	return MakeLoc(x, ySize-row, xSize), nil
}
