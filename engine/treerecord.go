package engine

import (
	"selfplay/game"
	"selfplay/meta"
	"selfplay/searcher"
)

type treeFrame struct {
	state         game.State
	pla           game.Player
	node          searcher.NodeRef
	depth         int
	plaAlwaysBest bool
	oppAlwaysBest bool
}

// recordTreePositions walks the searched tree below the root and records a side position for
// every node reached while the player to move kept choosing its most visited move. The opponent
// may play any reply but only its most visited one keeps the walk going for it. Root children at
// excludeLoc0 and excludeLoc1 are skipped since they are played or searched separately.
func recordTreePositions(data *FinishedGameData, state game.State, pla game.Player, bot searcher.Search,
	minVisits int64, targetWeight float64, numEvaluatorChanges int, excludeLoc0, excludeLoc1 game.Loc) error {
	root := bot.Root()
	if root == searcher.NoNode {
		return nil
	}
	rootVisits := bot.NodeVisits(root)

	stack := []treeFrame{{state: state, pla: pla, node: root, plaAlwaysBest: true, oppAlwaysBest: true}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := bot.Children(f.node)
		if len(children) == 0 {
			continue
		}

		if f.plaAlwaysBest && f.node != root {
			t, err := extractSearchTargets(bot, f.node)
			if err != nil {
				return err
			}
			sp := newSidePosition(f.state, f.pla, numEvaluatorChanges)
			sp.setTargets(t)
			sp.NNRawStats = computeNNRawStats(bot, f.state, f.pla)
			sp.TargetWeight = targetWeight
			sp.UnreducedNumVisits = rootVisits
			data.SidePositions = append(data.SidePositions, sp)
		}

		if f.depth >= meta.TREE_RECORD_MAX_DEPTH {
			continue
		}

		best, bestVisits := 0, bot.NodeVisits(children[0].Node)
		for i := 1; i < len(children); i++ {
			if visits := bot.NodeVisits(children[i].Node); visits > bestVisits {
				best, bestVisits = i, visits
			}
		}

		var next []treeFrame
		for i, child := range children {
			newPlaAlwaysBest := f.oppAlwaysBest
			newOppAlwaysBest := f.plaAlwaysBest && i == best
			if !newPlaAlwaysBest && !newOppAlwaysBest {
				continue
			}
			if f.node == root && (child.Loc == excludeLoc0 || child.Loc == excludeLoc1) {
				continue
			}
			if bot.NodeVisits(child.Node) < minVisits {
				continue
			}
			if !f.state.IsLegal(child.Loc, f.pla) {
				continue
			}
			next = append(next, treeFrame{
				state:         f.state.Play(child.Loc, f.pla),
				pla:           f.pla.Opp(),
				node:          child.Node,
				depth:         f.depth + 1,
				plaAlwaysBest: newPlaAlwaysBest,
				oppAlwaysBest: newOppAlwaysBest,
			})
		}
		// Reversed so positions come out in depth-first order
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return nil
}
