package playutils

import (
	"math"

	"selfplay/game"
	"selfplay/utils"
)

// ExtraBlackAndKomi is the handicap and komi model drawn for one game.
type ExtraBlackAndKomi struct {
	ExtraBlack   int
	KomiMean     float64
	KomiStdev    float64
	AllowInteger bool
	// MakeGameFair asks the driver to search for an even komi on the actual start position
	MakeGameFair bool
	// MakeGameFairForEmptyBoard asks for an even komi on an empty board of the same size
	MakeGameFairForEmptyBoard bool
	// InterpZero scales the noised komi toward zero by a uniform factor
	InterpZero bool
}

type KomiModel struct {
	KomiMean             float64
	KomiStdev            float64
	KomiAllowIntegerProb float64
	HandicapProb         float64
	NumExtraBlackFixed   int
	KomiBigStdevProb     float64
	KomiBigStdev         float64
	KomiBiggerStdevProb  float64
	KomiBiggerStdev      float64
}

// ChooseExtraBlackAndKomi draws the handicap and the komi noise regime. Standard deviations are
// configured for 19x19 and scaled by the board edge.
func ChooseExtraBlackAndKomi(model KomiModel, sqrtBoardArea float64, rand *utils.Rand) ExtraBlackAndKomi {
	extraBlack := 0
	stdev := model.KomiStdev
	allowInteger := rand.Bool(model.KomiAllowIntegerProb)

	if model.KomiBigStdevProb > 0 && rand.Bool(model.KomiBigStdevProb) {
		stdev = model.KomiBigStdev
	}
	if model.KomiBiggerStdevProb > 0 && rand.Bool(model.KomiBiggerStdevProb) {
		stdev = model.KomiBiggerStdev
	}
	if model.HandicapProb > 0 && rand.Bool(model.HandicapProb) {
		if model.NumExtraBlackFixed > 0 {
			extraBlack = model.NumExtraBlackFixed
		} else {
			extraBlack = 1 + rand.Intn(3)
		}
	}

	return ExtraBlackAndKomi{
		ExtraBlack:   extraBlack,
		KomiMean:     model.KomiMean,
		KomiStdev:    stdev * sqrtBoardArea / 19.0,
		AllowInteger: allowInteger,
	}
}

// RoundAndClipKomi rounds to a multiple of 0.5, to a half-integer unless integers are allowed,
// and clips to what the board area can make meaningful.
func RoundAndClipKomi(komi float64, area int, allowInteger bool) float32 {
	komi = 0.5 * math.Round(2*komi)
	if !allowInteger && komi == math.Round(komi) {
		komi += 0.5
	}
	limit := float64(area) + 0.5
	komi = utils.Clamp(komi, -limit, limit)
	return float32(komi)
}

func SetKomiWithoutNoise(ebk ExtraBlackAndKomi, state game.State) game.State {
	return state.WithKomi(RoundAndClipKomi(ebk.KomiMean, state.Area(), ebk.AllowInteger))
}

func SetKomiWithNoise(ebk ExtraBlackAndKomi, state game.State, rand *utils.Rand) game.State {
	komi := ebk.KomiMean
	if ebk.KomiStdev > 0 {
		komi += ebk.KomiStdev * rand.GaussianTruncated(2.5)
	}
	if ebk.InterpZero {
		komi *= rand.Float64()
	}
	return state.WithKomi(RoundAndClipKomi(komi, state.Area(), ebk.AllowInteger))
}
