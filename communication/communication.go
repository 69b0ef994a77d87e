package communication

import "time"

// Status is a progress snapshot of a running experiment.
type Status struct {
	StartTime        time.Time `json:"startTime"`
	UpdateTime       time.Time `json:"updateTime"`
	GamesTotal       int64     `json:"gamesTotal"`
	GamesStarted     int64     `json:"gamesStarted"`
	GamesFinished    int64     `json:"gamesFinished"`
	Moves            int64     `json:"moves"`
	Resignations     int64     `json:"resignations"`
	SidePositions    int64     `json:"sidePositions"`
	ForkPoolSize     int       `json:"forkPoolSize"`
	SekiForkPoolSize int       `json:"sekiForkPoolSize"`
	Paused           bool      `json:"paused"`
}

// StatusPublisher abstracts where progress snapshots go.
type StatusPublisher interface {
	UpdateStatus(status Status)
}
