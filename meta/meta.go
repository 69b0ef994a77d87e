// meta/meta.go
package meta

// SEKI_FORK_CAPACITY defines the hard capacity of the seki fork pool.
const SEKI_FORK_CAPACITY = 1000

// TREE_RECORD_MAX_DEPTH defines how many plies below the root tree positions are recorded.
const TREE_RECORD_MAX_DEPTH = 5

// POLICY_TARGET_MAX defines the largest quantized policy target weight before uniform scaling.
const POLICY_TARGET_MAX = 30000

// POLICY_TARGET_SCALE_MAX_TO_AT_LEAST defines the minimum maximum of play selection values.
const POLICY_TARGET_SCALE_MAX_TO_AT_LEAST = 10.0

// MIN_ASYMMETRIC_VISITS defines the smallest visit or playout budget an asymmetric game may use.
const MIN_ASYMMETRIC_VISITS = 5

// MAX_VISITS_CAP caps hint-boosted visit and playout budgets.
const MAX_VISITS_CAP = int64(1) << 50

// WARMUP_VISITS defines the size of the tiny search run after a cleared tree.
const WARMUP_VISITS = 10

// MAX_MATCHUPS defines how many matchups a pairer can index.
const MAX_MATCHUPS = 0xFFFFFF

// MAX_MOVES_PER_GAME defines the upper bound on the configured move limit.
const MAX_MOVES_PER_GAME = 1 << 30

// NEW_EVALUATOR_CHECK_PROB defines the per-move chance of polling for a newer evaluator.
const NEW_EVALUATOR_CHECK_PROB = 0.1

// VALUE_SURPRISE_FLOOR defines the average value surprise below which value reweighting is damped.
const VALUE_SURPRISE_FLOOR = 0.010

// POLICY_SURPRISE_THRESHOLD_FACTOR scales the average policy surprise into the surprise threshold.
const POLICY_SURPRISE_THRESHOLD_FACTOR = 1.5

// VALUE_SURPRISE_NOW_FACTOR_PER_CELL controls how fast value targets decay backward through a game.
const VALUE_SURPRISE_NOW_FACTOR_PER_CELL = 0.016

// CHEAP_SEARCH_HINT_PLIES defines how long after a hint the cheap search probability is halved.
const CHEAP_SEARCH_HINT_PLIES = 6
