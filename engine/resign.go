package engine

import (
	"math"

	"selfplay/config"
	"selfplay/game"
)

// ShouldResign reports whether pla, who just moved on turn turnIdx, should resign. whiteWinLosses
// holds the root win-loss value of every searched turn from White's perspective. All of the last
// resignConsecTurns values must be past the threshold against pla.
func ShouldResign(whiteWinLosses []float64, pla game.Player, turnIdx, area int, settings *config.PlaySettings) (bool, error) {
	if !settings.AllowResignation || len(whiteWinLosses) < settings.ResignConsecTurns {
		return false, nil
	}
	if turnIdx < 1+area/5 {
		return false, nil
	}
	threshold := settings.ResignThreshold
	if threshold > 0 || math.IsNaN(threshold) {
		return false, config.NewError(settingsSource, "resignThreshold", "must be <= 0, got %v", threshold)
	}

	for j := 0; j < settings.ResignConsecTurns; j++ {
		winLoss := whiteWinLosses[len(whiteWinLosses)-1-j]
		resigner := game.Empty
		if winLoss < threshold {
			resigner = game.White
		} else if winLoss > -threshold {
			resigner = game.Black
		}
		if resigner != pla {
			return false, nil
		}
	}
	return true, nil
}
