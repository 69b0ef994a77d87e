package searcher

import (
	"math"
	"sync"
	"sync/atomic"

	"selfplay/evaluator"
	"selfplay/game"
	"selfplay/utils"

	"github.com/rs/zerolog/log"
)

type Option func(mcts *MCTS)

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = NewMetricsCollector()
	}
}

// MCTS is a PUCT tree search over evaluator priors and values. Playouts run on Params.Threads
// goroutines.
type MCTS struct {
	params    Params
	evaluator evaluator.Evaluator

	treeMu sync.RWMutex
	nodes  []*node
	root   NodeRef

	rootState game.State
	hintLoc   game.Loc

	randMu sync.Mutex
	rand   *utils.Rand

	metrics     MetricsCollector
	lastMetrics MoveMetrics
}

func NewMCTS(params Params, eval evaluator.Evaluator, seed string, options ...Option) *MCTS {
	if params.Threads <= 0 {
		params.Threads = 1
	}
	m := &MCTS{
		params:    params,
		evaluator: eval,
		root:      NoNode,
		hintLoc:   game.NullLoc,
		rand:      utils.NewRand(seed),
		metrics:   NewNoMetricsCollector(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// NewFactory returns a Factory building MCTS searches with the given options.
func NewFactory(options ...Option) Factory {
	return func(params Params, eval evaluator.Evaluator, seed string) Search {
		return NewMCTS(params, eval, seed, options...)
	}
}

func (m *MCTS) Params() Params                 { return m.params }
func (m *MCTS) Evaluator() evaluator.Evaluator { return m.evaluator }
func (m *MCTS) RootState() game.State          { return m.rootState }
func (m *MCTS) Root() NodeRef                  { return m.root }
func (m *MCTS) LastSearchMetrics() MoveMetrics { return m.lastMetrics }

func (m *MCTS) SetParams(params Params) {
	if params.Threads <= 0 {
		params.Threads = 1
	}
	m.params = params
}

func (m *MCTS) SetEvaluator(eval evaluator.Evaluator) {
	if m.evaluator == eval {
		return
	}
	m.evaluator = eval
	m.ClearSearch()
}

func (m *MCTS) SetPosition(state game.State) {
	m.rootState = state
	m.ClearSearch()
}

func (m *MCTS) SetKomiIfNew(komi float32) {
	if m.rootState == nil || m.rootState.Komi() == komi {
		return
	}
	m.rootState = m.rootState.WithKomi(komi)
	m.ClearSearch()
}

// SetRootHintLoc clears the search when a new hint is set so the forced playouts start fresh.
func (m *MCTS) SetRootHintLoc(loc game.Loc) {
	if loc != game.NullLoc && loc != m.hintLoc {
		m.ClearSearch()
	}
	m.hintLoc = loc
}

func (m *MCTS) ClearSearch() {
	m.treeMu.Lock()
	m.nodes = nil
	m.root = NoNode
	m.treeMu.Unlock()
}

func (m *MCTS) get(ref NodeRef) *node {
	m.treeMu.RLock()
	defer m.treeMu.RUnlock()
	if ref < 0 || int(ref) >= len(m.nodes) {
		return nil
	}
	return m.nodes[ref]
}

func (m *MCTS) add(n *node) NodeRef {
	m.treeMu.Lock()
	defer m.treeMu.Unlock()
	n.ref = NodeRef(len(m.nodes))
	m.nodes = append(m.nodes, n)
	return n.ref
}

func (m *MCTS) MakeMove(loc game.Loc, pla game.Player) bool {
	if m.rootState == nil || !m.rootState.IsLegal(loc, pla) {
		return false
	}
	next := m.rootState.Play(loc, pla)
	m.metrics.SetTreeReset(true)

	reused := NoNode
	if root := m.get(m.root); root != nil && pla == m.rootState.Player() {
		root.mu.RLock()
		for _, e := range root.edges {
			if e.loc == loc {
				reused = e.node
				break
			}
		}
		root.mu.RUnlock()
	}
	child := m.get(reused)
	if child == nil {
		m.rootState = next
		m.ClearSearch()
		return true
	}
	if child.state.Hash() != next.Hash() {
		log.Warn().Msgf("node's state hash %d does not match played state hash %d", child.state.Hash(), next.Hash())
		m.rootState = next
		m.ClearSearch()
		return true
	}

	m.rootState = next
	m.rebase(reused)
	m.metrics.SetTreeReset(false)
	return true
}

// rebase compacts the arena down to the subtree under ref, which becomes the root.
func (m *MCTS) rebase(ref NodeRef) {
	m.treeMu.Lock()
	defer m.treeMu.Unlock()

	old := m.nodes
	nodes := make([]*node, 0, len(old)/2+1)
	remap := map[NodeRef]NodeRef{ref: 0}
	nodes = append(nodes, old[ref])
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		for j, e := range n.edges {
			if e.node == NoNode {
				continue
			}
			remap[e.node] = NodeRef(len(nodes))
			n.edges[j].node = NodeRef(len(nodes))
			nodes = append(nodes, old[e.node])
		}
	}
	for i, n := range nodes {
		n.ref = NodeRef(i)
		if i == 0 {
			n.parent = NoNode
			n.noised = false
			continue
		}
		n.parent = remap[n.parent]
	}
	m.nodes = nodes
	m.root = 0
}

func (m *MCTS) RunWholeSearchAndGetMove(pla game.Player) game.Loc {
	if m.rootState == nil {
		panic("search has no position")
	}
	if m.rootState.Player() != pla {
		m.rootState = m.rootState.ClearHistory(pla, m.rootState.EncorePhase())
		m.ClearSearch()
	}
	m.runWholeSearch()
	return m.chooseMove()
}

func (m *MCTS) runWholeSearch() {
	if m.root == NoNode {
		m.root = m.add(newNode(m.rootState, NoNode, game.NullLoc))
	}
	root := m.get(m.root)

	m.metrics.Start()
	defer func() {
		m.lastMetrics = m.metrics.Complete()
	}()
	if m.rootState.IsFinished() {
		return
	}
	if m.params.RootNoiseEnabled {
		root.mu.Lock()
		if root.expanded && !root.noised {
			m.addRootNoise(root)
		}
		root.mu.Unlock()
	}

	budget := m.params.MaxVisits - root.visits.Load()
	if m.params.MaxPlayouts < budget {
		budget = m.params.MaxPlayouts
	}
	if budget <= 0 && !root.expanded {
		budget = 1
	}
	m.iterate(budget)
}

func (m *MCTS) iterate(playouts int64) {
	var remaining atomic.Int64
	remaining.Store(playouts)

	var wg sync.WaitGroup
	for i := 0; i < m.params.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for remaining.Add(-1) >= 0 {
				m.simulate()
				m.metrics.AddEpisode()
			}
		}()
	}

	wg.Wait()
}

func (m *MCTS) simulate() {
	path := []*node{m.get(m.root)}
	var leaf sample
	for {
		n := path[len(path)-1]
		if n.state.IsFinished() {
			leaf = terminalSample(n.state.Result(), m.params.DrawEquivalentWinsForWhite)
			m.metrics.AddFullPlayout()
			break
		}

		n.mu.Lock()
		if !n.expanded {
			m.expand(n, len(path) == 1)
			leaf = outputSample(n.output)
			n.mu.Unlock()
			break
		}
		child := m.selectChild(n, len(path) == 1)
		n.mu.Unlock()
		if child == nil {
			// Every move was pruned, treat as a leaf
			leaf = outputSample(n.output)
			break
		}
		child.virtualLoss.Add(1)
		path = append(path, child)
	}

	for i := len(path) - 1; i >= 0; i-- {
		path[i].add(leaf, m.params.NoResultUtilityForWhite)
		if i > 0 {
			path[i].virtualLoss.Add(-1)
		}
	}
}

// expand evaluates n and lists its candidate moves. Callers hold n.mu.
func (m *MCTS) expand(n *node, isRoot bool) {
	pla := n.state.Player()
	n.output = m.evaluator.Evaluate(n.state, pla, m.inputParams(pla))
	xSize, ySize := n.state.XSize(), n.state.YSize()
	for pos, prior := range n.output.Policy {
		if prior < 0 {
			continue
		}
		loc := game.PolicyLoc(pos, xSize, ySize)
		if !n.state.IsLegal(loc, pla) {
			continue
		}
		n.edges = append(n.edges, edge{loc: loc, prior: prior, node: NoNode})
	}
	n.expanded = true
	if isRoot && m.params.RootNoiseEnabled {
		m.addRootNoise(n)
	}
}

// addRootNoise mixes Dirichlet noise into the root priors. Callers hold n.mu.
func (m *MCTS) addRootNoise(n *node) {
	n.noised = true
	if len(n.edges) == 0 {
		return
	}
	alpha := 0.03 * 361 / float64(len(n.edges))
	noise := make([]float64, len(n.edges))
	sum := 0.0
	m.randMu.Lock()
	for i := range noise {
		noise[i] = m.rand.Gamma(alpha)
		sum += noise[i]
	}
	m.randMu.Unlock()
	if sum <= 0 {
		return
	}
	w := m.params.RootDirichletNoiseWeight
	for i := range n.edges {
		n.edges[i].prior = (1-w)*n.edges[i].prior + w*noise[i]/sum
	}
}

func (m *MCTS) inputParams(pla game.Player) evaluator.InputParams {
	pda := m.params.PlayoutDoublingAdvantage
	pdaPla := m.params.PlayoutDoublingAdvantagePla
	if pdaPla == game.Empty && m.rootState != nil {
		pdaPla = m.rootState.Player()
	}
	if pla != pdaPla {
		pda = -pda
	}
	return evaluator.InputParams{
		DrawEquivalentWinsForWhite: m.params.DrawEquivalentWinsForWhite,
		PlayoutDoublingAdvantage:   pda,
	}
}

// selectChild picks the edge to descend by PUCT, creating its node on first visit. Callers hold
// n.mu.
func (m *MCTS) selectChild(n *node, isRoot bool) *node {
	if len(n.edges) == 0 {
		return nil
	}
	pla := n.state.Player()
	parentUtility, _ := n.utilityLocked(pla)
	visits := float64(n.visits.Load() + n.virtualLoss.Load())
	policy := newPUCT(m.params.CPuct, visits)

	best := -1
	if isRoot && m.hintLoc != game.NullLoc {
		best = m.forcedHint(n)
	}
	if best < 0 {
		bestScore := math.Inf(-1)
		for i, e := range n.edges {
			q, childVisits := parentUtility-FPU_REDUCTION, int64(0)
			if child := m.get(e.node); child != nil {
				if u, total := child.utility(pla); total > 0 {
					q, childVisits = u, total
				}
			}
			score := policy.evaluate(q, e.prior, float64(childVisits))
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
	}

	e := &n.edges[best]
	if e.node == NoNode {
		e.node = m.add(newNode(n.state.Play(e.loc, pla), n.ref, e.loc))
	}
	return m.get(e.node)
}

// forcedHint returns the hint edge while it has fewer than half of the root visits.
func (m *MCTS) forcedHint(root *node) int {
	for i, e := range root.edges {
		if e.loc != m.hintLoc {
			continue
		}
		var hintVisits int64
		if child := m.get(e.node); child != nil {
			hintVisits = child.visits.Load() + child.virtualLoss.Load()
		}
		if hintVisits*2 < root.visits.Load()+1 {
			return i
		}
		return -1
	}
	return -1
}

func (m *MCTS) chooseMove() game.Loc {
	locs, visits, ok := m.PlaySelectionValues(m.root, 0)
	if !ok {
		return m.fallbackMove()
	}
	if m.params.ChosenMoveTemperature > 1e-4 {
		probs := AdjustTemperature(visits, m.params.ChosenMoveTemperature)
		m.randMu.Lock()
		idx := Sample(m.rand, probs)
		m.randMu.Unlock()
		if idx >= 0 {
			return locs[idx]
		}
	}
	best := findMax(visits)
	if m.params.UseLcbForSelection {
		best = m.lcbChoice(locs, visits, best)
	}
	return locs[best]
}

// lcbChoice prefers the child with the best lower confidence bound among well visited children.
func (m *MCTS) lcbChoice(locs []game.Loc, visits []float64, best int) int {
	pla := m.rootState.Player()
	nodes := make(map[game.Loc]NodeRef)
	for _, child := range m.Children(m.root) {
		nodes[child.Loc] = child.Node
	}
	bestLCB := math.Inf(-1)
	if n := m.get(nodes[locs[best]]); n != nil {
		if lcb, ok := n.utilityLCB(pla); ok {
			bestLCB = lcb
		}
	}
	for i, loc := range locs {
		if visits[i] < LCB_MIN_VISIT_PROP*visits[best] {
			continue
		}
		n := m.get(nodes[loc])
		if n == nil {
			continue
		}
		if lcb, ok := n.utilityLCB(pla); ok && lcb > bestLCB {
			best, bestLCB = i, lcb
		}
	}
	return best
}

// fallbackMove is the highest prior legal move when the search produced no visited children.
func (m *MCTS) fallbackMove() game.Loc {
	root := m.get(m.root)
	if root == nil {
		return game.PassLoc
	}
	root.mu.RLock()
	defer root.mu.RUnlock()
	best, bestPrior := game.PassLoc, -1.0
	for _, e := range root.edges {
		if e.prior > bestPrior {
			best, bestPrior = e.loc, e.prior
		}
	}
	return best
}

func (m *MCTS) Children(ref NodeRef) []Child {
	n := m.get(ref)
	if n == nil {
		return nil
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	var children []Child
	for _, e := range n.edges {
		if e.node != NoNode {
			children = append(children, Child{Loc: e.loc, Node: e.node})
		}
	}
	return children
}

func (m *MCTS) NodeVisits(ref NodeRef) int64 {
	if n := m.get(ref); n != nil {
		return n.visits.Load()
	}
	return 0
}

func (m *MCTS) NodeValues(ref NodeRef) (Values, bool) {
	if n := m.get(ref); n != nil {
		return n.values()
	}
	return Values{}, false
}

func (m *MCTS) RootValues() (Values, bool) {
	return m.NodeValues(m.root)
}

func (m *MCTS) RootRawOutput() *evaluator.Output {
	n := m.get(m.root)
	if n == nil {
		return nil
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.output
}

// PlaySelectionValues returns the visited children of a node weighted by visits. If the largest
// weight is below scaleMaxToAtLeast all weights are scaled up to reach it.
func (m *MCTS) PlaySelectionValues(ref NodeRef, scaleMaxToAtLeast float64) ([]game.Loc, []float64, bool) {
	var locs []game.Loc
	var values []float64
	maxValue := 0.0
	for _, child := range m.Children(ref) {
		visits := float64(m.NodeVisits(child.Node))
		if visits <= 0 {
			continue
		}
		locs = append(locs, child.Loc)
		values = append(values, visits)
		maxValue = math.Max(maxValue, visits)
	}
	if len(locs) == 0 {
		return nil, nil, false
	}
	if maxValue < scaleMaxToAtLeast {
		factor := scaleMaxToAtLeast / maxValue
		for i := range values {
			values[i] *= factor
		}
	}
	return locs, values, true
}

func (m *MCTS) PolicySurpriseAndEntropy(ref NodeRef) (float64, float64, float64, bool) {
	n := m.get(ref)
	if n == nil {
		return 0, 0, 0, false
	}
	n.mu.RLock()
	output := n.output
	n.mu.RUnlock()
	if output == nil {
		return 0, 0, 0, false
	}
	locs, values, ok := m.PlaySelectionValues(ref, 0)
	if !ok {
		return 0, 0, 0, false
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	xSize, ySize := output.XSize, output.YSize
	surprise, searchEntropy := 0.0, 0.0
	for i, loc := range locs {
		target := values[i] / sum
		if target <= 1e-30 {
			continue
		}
		prior := output.Policy[game.PolicyPos(loc, xSize, ySize)]
		searchEntropy -= target * math.Log(target)
		surprise += target * (math.Log(target) - math.Log(math.Max(prior, 1e-30)))
	}
	policyEntropy := 0.0
	for _, p := range output.Policy {
		if p > 1e-30 {
			policyEntropy -= p * math.Log(p)
		}
	}
	return surprise, searchEntropy, policyEntropy, true
}
