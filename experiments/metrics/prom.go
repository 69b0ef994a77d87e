package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "selfplay",
		Name:      "games_finished_total",
		Help:      "Games played to the end, by start mode",
	}, []string{"mode"})

	movesPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "selfplay",
		Name:      "moves_total",
		Help:      "Moves chosen by search",
	})

	resignations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "selfplay",
		Name:      "resignations_total",
		Help:      "Games ended by resignation",
	})

	sidePositions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "selfplay",
		Name:      "side_positions_total",
		Help:      "Side positions searched after games",
	})

	gameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "selfplay",
		Name:      "game_duration_seconds",
		Help:      "Wall time of one game",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
	})

	gameLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "selfplay",
		Name:      "game_moves",
		Help:      "Moves per game",
		Buckets:   prometheus.LinearBuckets(0, 40, 12),
	})

	forkPoolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "selfplay",
		Name:      "fork_pool_size",
		Help:      "Positions waiting in the fork pools",
	}, []string{"pool"})

	gamesStarted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "selfplay",
		Name:      "games_started",
		Help:      "Games handed out so far",
	})
)

func observeGame(metric GameMetric) {
	gamesFinished.WithLabelValues(metric.Mode).Inc()
	if metric.Resigned {
		resignations.Inc()
	}
	sidePositions.Add(float64(metric.SidePositions))
	gameDuration.Observe(metric.Duration.Seconds())
	gameLength.Observe(float64(metric.TotalMoves))
}

// SetPoolSizes publishes the current plain and seki fork pool sizes.
func SetPoolSizes(forks, sekiForks int) {
	forkPoolSize.WithLabelValues("fork").Set(float64(forks))
	forkPoolSize.WithLabelValues("seki").Set(float64(sekiForks))
}

func SetGamesStarted(n int64) {
	gamesStarted.Set(float64(n))
}
