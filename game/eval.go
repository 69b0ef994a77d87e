package game

import "math"

// Evaluates the game state to a score between -1 and 1 indicating how favorable the position
// is to White.
type Evaluate func(State) float64

// AreaLead tallies each player's stones and surrounded regions and returns White's lead
// including komi.
func AreaLead(s State) float64 {
	lead := float64(s.Komi())
	for _, owner := range s.FullArea() {
		switch owner {
		case White:
			lead++
		case Black:
			lead--
		}
	}
	return lead
}

// EvaluateArea squashes the area lead by the board's linear size.
func EvaluateArea(s State) float64 {
	return math.Tanh(AreaLead(s) / math.Sqrt(float64(s.Area())))
}
