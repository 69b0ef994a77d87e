package gamemaster

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"selfplay/game"
	"selfplay/utils"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

var posesSuffixes = []string{".startposes.txt", ".hintposes.txt", ".bookposes.txt", ".jsonl"}

func isPosesFile(name string) bool {
	name = strings.TrimSuffix(name, ".zst")
	for _, suffix := range posesSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// collectPosesFiles lists the poses files under a comma separated list of directories. The
// directory paths themselves cannot contain commas.
func collectPosesFiles(dirs string) ([]string, error) {
	var files []string
	for _, dir := range strings.Split(dirs, ",") {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isPosesFile(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("collect poses files in %s: %w", dir, err)
		}
	}
	return files, nil
}

// readPosesFile calls handle for every position of a JSON lines poses file, decompressing .zst
// files on the fly. Lines that fail to parse are logged and skipped.
func readPosesFile(path string, handle func(game.PositionSample)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		decoder, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("create zstd decoder: %w", err)
		}
		defer decoder.Close()
		r = decoder
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sample, err := game.ParsePositionSample([]byte(line))
		if err != nil {
			log.Error().Err(err).Str("file", path).Int("line", lineNum).Msg("Could not parse position")
			continue
		}
		handle(sample)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// readExcludes returns the content hashes of every position in a comma separated list of files.
func readExcludes(files string) (map[game.Hash]struct{}, error) {
	excludes := make(map[game.Hash]struct{})
	for _, file := range strings.Split(files, ",") {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		err := readPosesFile(file, func(s game.PositionSample) {
			excludes[s.ContentHash()] = struct{}{}
		})
		if err != nil {
			return nil, fmt.Errorf("read excludes: %w", err)
		}
	}
	return excludes, nil
}

// loadStartPoses reads every distinct position under dirs that is not excluded, keeping each
// with probability loadProb.
func loadStartPoses(dirs, excludeFiles string, loadProb float64, rand *utils.Rand) ([]game.PositionSample, error) {
	files, err := collectPosesFiles(dirs)
	if err != nil {
		return nil, err
	}
	excludes, err := readExcludes(excludeFiles)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Found %d poses files", len(files))
	log.Info().Msgf("Loaded %d excludes", len(excludes))

	var poses []game.PositionSample
	seen := make(map[game.Hash]struct{})
	numExcluded := 0
	for _, file := range files {
		err := readPosesFile(file, func(s game.PositionSample) {
			hash := s.ContentHash()
			if _, ok := excludes[hash]; ok {
				numExcluded++
				return
			}
			if _, ok := seen[hash]; ok {
				return
			}
			seen[hash] = struct{}{}
			if rand.Bool(loadProb) {
				poses = append(poses, s)
			}
		})
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Invalid poses file")
		}
	}
	log.Info().Msgf("Kept %d start positions", len(poses))
	log.Info().Msgf("Excluded %d positions", numExcluded)
	return poses, nil
}

func loadHintPoses(dirs string) ([]game.PositionSample, error) {
	files, err := collectPosesFiles(dirs)
	if err != nil {
		return nil, err
	}
	var poses []game.PositionSample
	for _, file := range files {
		if err := readPosesFile(file, func(s game.PositionSample) { poses = append(poses, s) }); err != nil {
			log.Error().Err(err).Str("file", file).Msg("Invalid poses file")
		}
	}
	log.Info().Msgf("Loaded %d hint positions", len(poses))
	return poses, nil
}

// cumulativeWeights weights each position by exp(-turns*lambda) times its own weight, where turns
// counts from the earliest initial turn number. It also returns the effective sample size.
func cumulativeWeights(poses []game.PositionSample, lambda float64) ([]float64, float64, error) {
	minInitialTurnNumber := 0
	for _, p := range poses {
		minInitialTurnNumber = min(minInitialTurnNumber, p.InitialTurnNumber)
	}

	cum := make([]float64, len(poses))
	sum, sumSq := 0.0, 0.0
	for i, p := range poses {
		startTurn := float64(p.CurrentTurnNumber() - minInitialTurnNumber)
		w := math.Exp(-startTurn*lambda) * p.Weight
		if !(w > -1e200 && w < 1e200) {
			return nil, 0, fmt.Errorf("position %d has bad unnormalized probability %v", i, w)
		}
		sum += w
		sumSq += w * w
		cum[i] = sum
	}
	ess := sum * sum / (sumSq + 1e-200)
	return cum, ess, nil
}
