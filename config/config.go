package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the whole process configuration. It is loaded once and never mutated afterwards.
type Config struct {
	Play   PlaySettings `yaml:"play" json:"play"`
	Init   GameInit     `yaml:"init" json:"init"`
	Runner Runner       `yaml:"runner" json:"runner"`
	Match  Match        `yaml:"match" json:"match"`
	Output Output       `yaml:"output" json:"output"`

	// Source names where the configuration came from, for error messages
	Source string `yaml:"-" json:"-"`
}

type Runner struct {
	LogSearchInfo        bool `yaml:"logSearchInfo" json:"logSearchInfo"`
	LogMoves             bool `yaml:"logMoves" json:"logMoves"`
	MaxMovesPerGame      int  `yaml:"maxMovesPerGame" json:"maxMovesPerGame"`
	ClearBotBeforeSearch bool `yaml:"clearBotBeforeSearch" json:"clearBotBeforeSearch"`
}

type Bot struct {
	Name                       string  `yaml:"name" json:"name"`
	Evaluator                  string  `yaml:"evaluator" json:"evaluator"`
	MaxVisits                  int64   `yaml:"maxVisits" json:"maxVisits"`
	MaxPlayouts                int64   `yaml:"maxPlayouts" json:"maxPlayouts"`
	NumSearchThreads           int     `yaml:"numSearchThreads" json:"numSearchThreads"`
	CPuct                      float64 `yaml:"cpuct" json:"cpuct"`
	RootNoiseEnabled           bool    `yaml:"rootNoiseEnabled" json:"rootNoiseEnabled"`
	ChosenMoveTemperature      float64 `yaml:"chosenMoveTemperature" json:"chosenMoveTemperature"`
	UseLcbForSelection         bool    `yaml:"useLcbForSelection" json:"useLcbForSelection"`
	DrawEquivalentWinsForWhite float64 `yaml:"drawEquivalentWinsForWhite" json:"drawEquivalentWinsForWhite"`
	NoResultUtilityForWhite    float64 `yaml:"noResultUtilityForWhite" json:"noResultUtilityForWhite"`
}

type Matchup struct {
	Black int `yaml:"black" json:"black"`
	White int `yaml:"white" json:"white"`
}

type Match struct {
	Bots []Bot `yaml:"bots" json:"bots"`
	// Every ordered pair of distinct bots when empty, or self-play for a single bot
	Matchups       []Matchup `yaml:"matchups" json:"matchups"`
	NumGamesTotal  int64     `yaml:"numGamesTotal" json:"numGamesTotal"`
	NumGameThreads int       `yaml:"numGameThreads" json:"numGameThreads"`
	LogGamesEvery  int64     `yaml:"logGamesEvery" json:"logGamesEvery"`
	Seed           string    `yaml:"seed" json:"seed"`
}

type Output struct {
	Dir         string `yaml:"dir" json:"dir"`
	RecordMoves bool   `yaml:"recordMoves" json:"recordMoves"`
	StatusAddr  string `yaml:"statusAddr" json:"statusAddr"`
}

func DefaultBot(name string) Bot {
	return Bot{
		Name:                       name,
		Evaluator:                  "heuristic",
		MaxVisits:                  100,
		MaxPlayouts:                1 << 40,
		NumSearchThreads:           1,
		CPuct:                      1.1,
		DrawEquivalentWinsForWhite: 0.5,
	}
}

// Default returns the base configuration. It does not choose a komi mode, so it only validates
// once komiMean or komiAuto has been set.
func Default() Config {
	return Config{
		Play: DefaultPlaySettings(),
		Init: DefaultGameInit(),
		Runner: Runner{
			MaxMovesPerGame: 1000,
		},
		Match: Match{
			Bots:           []Bot{DefaultBot("bot0")},
			NumGamesTotal:  10,
			NumGameThreads: 1,
			LogGamesEvery:  1,
		},
		Source: "defaults",
	}
}

// Load merges defaults, the YAML or JSON file at path, and SELFPLAY_* environment overrides,
// then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg.Source = path
	}

	loadConfigFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(cfg *Config) {
	if v := os.Getenv("SELFPLAY_NUM_GAMES_TOTAL"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Match.NumGamesTotal = i
		}
	}
	if v := os.Getenv("SELFPLAY_NUM_GAME_THREADS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Match.NumGameThreads = i
		}
	}
	if v := os.Getenv("SELFPLAY_LOG_GAMES_EVERY"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Match.LogGamesEvery = i
		}
	}
	if v := os.Getenv("SELFPLAY_SEED"); v != "" {
		cfg.Match.Seed = v
	}
	if v := os.Getenv("SELFPLAY_MAX_MOVES_PER_GAME"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Runner.MaxMovesPerGame = i
		}
	}
	if v := os.Getenv("SELFPLAY_FOR_SELF_PLAY"); v != "" {
		cfg.Play.ForSelfPlay = v == "true" || v == "1"
	}
	if v := os.Getenv("SELFPLAY_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("SELFPLAY_STATUS_ADDR"); v != "" {
		cfg.Output.StatusAddr = v
	}
}

// ResolvedMatchups returns the configured matchups or the default pairing of the bots.
func (m Match) ResolvedMatchups() []Matchup {
	if len(m.Matchups) > 0 {
		return m.Matchups
	}
	return AllPairs(len(m.Bots))
}

// AllPairs is every ordered pairing of n distinct bots, or a bot against itself when n is 1.
func AllPairs(n int) []Matchup {
	if n == 1 {
		return []Matchup{{0, 0}}
	}
	var matchups []Matchup
	for b := 0; b < n; b++ {
		for w := 0; w < n; w++ {
			if b != w {
				matchups = append(matchups, Matchup{b, w})
			}
		}
	}
	return matchups
}

func (c Config) Validate() error {
	if err := c.Play.Validate(c.Source); err != nil {
		return err
	}
	if err := c.Init.Validate(c.Source); err != nil {
		return err
	}
	if c.Runner.MaxMovesPerGame < 0 || c.Runner.MaxMovesPerGame > 1<<30 {
		return NewError(c.Source, "maxMovesPerGame", "must be in [0,%d]", 1<<30)
	}
	if len(c.Match.Bots) == 0 {
		return NewError(c.Source, "bots", "must have at least one bot")
	}
	for i, bot := range c.Match.Bots {
		if bot.Name == "" {
			return NewError(c.Source, "bots", "bot %d has no name", i)
		}
		if bot.MaxVisits <= 0 || bot.MaxPlayouts <= 0 {
			return NewError(c.Source, "maxVisits", "bot %s must have positive maxVisits and maxPlayouts", bot.Name)
		}
		if bot.DrawEquivalentWinsForWhite < 0 || bot.DrawEquivalentWinsForWhite > 1 {
			return NewError(c.Source, "drawEquivalentWinsForWhite", "bot %s must be in [0,1]", bot.Name)
		}
		if c.Play.CheapSearchVisits > min(bot.MaxVisits, bot.MaxPlayouts) && c.Play.CheapSearchProb > 0 {
			return NewError(c.Source, "cheapSearchVisits", "must not exceed maxVisits or maxPlayouts of bot %s", bot.Name)
		}
	}
	for _, m := range c.Match.ResolvedMatchups() {
		if m.Black < 0 || m.Black >= len(c.Match.Bots) || m.White < 0 || m.White >= len(c.Match.Bots) {
			return NewError(c.Source, "matchups", "matchup %d-%d refers to a missing bot", m.Black, m.White)
		}
		if c.Play.ForSelfPlay && m.Black != m.White {
			return NewError(c.Source, "matchups", "self-play requires both colors to be the same bot")
		}
	}
	if c.Match.NumGamesTotal < 0 {
		return NewError(c.Source, "numGamesTotal", "must be nonnegative")
	}
	if c.Match.NumGameThreads < 1 {
		return NewError(c.Source, "numGameThreads", "must be >= 1")
	}
	if c.Match.LogGamesEvery < 1 || c.Match.LogGamesEvery > 1000000 {
		return NewError(c.Source, "logGamesEvery", "must be in [1,1000000]")
	}
	return nil
}
