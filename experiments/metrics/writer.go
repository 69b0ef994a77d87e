package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"selfplay/config"

	"github.com/google/uuid"
)

type GameRecord struct {
	Index int
	GameMetric
}

type MoveRecord struct {
	Game uuid.UUID // GameMetric.ID
	MoveMetric
}

type Writer struct {
	baseDir string
}

// NewWriter creates a subdirectory of dir named by the current time.
func NewWriter(dir string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(dir, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}

func (w *Writer) WriteBotConfigs(bots []config.Bot) error {
	header := []string{"index", "name", "evaluator", "max_visits", "max_playouts", "threads", "cpuct", "root_noise", "temperature", "lcb"}
	rows := make([][]string, 0, len(bots))
	for i, bot := range bots {
		rows = append(rows, []string{
			strconv.Itoa(i),
			bot.Name,
			bot.Evaluator,
			strconv.FormatInt(bot.MaxVisits, 10),
			strconv.FormatInt(bot.MaxPlayouts, 10),
			strconv.Itoa(bot.NumSearchThreads),
			strconv.FormatFloat(bot.CPuct, 'g', -1, 64),
			strconv.FormatBool(bot.RootNoiseEnabled),
			strconv.FormatFloat(bot.ChosenMoveTemperature, 'g', -1, 64),
			strconv.FormatBool(bot.UseLcbForSelection),
		})
	}
	return w.writeCSV("bot_configs.csv", header, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"index", "id", "black", "white", "mode", "winner", "resigned", "used_initial_position",
		"start_time", "end_time", "duration", "total_moves", "side_positions"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Index),
			record.ID.String(),
			record.Black,
			record.White,
			record.Mode,
			record.Winner,
			strconv.FormatBool(record.Resigned),
			strconv.FormatBool(record.UsedInitialPosition),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.TotalMoves),
			strconv.Itoa(record.SidePositions),
		})
	}
	return w.writeCSV("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "move", "duration", "playouts", "full_playouts", "is_tree_reused"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.Game.String(),
			strconv.Itoa(record.Step),
			record.Player,
			record.Move,
			record.Duration.String(),
			strconv.FormatInt(record.Playouts, 10),
			strconv.FormatInt(record.FullPlayouts, 10),
			strconv.FormatBool(record.TreeReused),
		})
	}
	return w.writeCSV("move_records.csv", header, rows)
}
