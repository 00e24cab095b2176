package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Writer persists run records as CSV files under a per-run directory.
type Writer struct {
	baseDir string
}

// NewWriter creates a run directory named by timestamp and a short run ID so
// concurrent runs never collide.
func NewWriter(root string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runID := uuid.NewString()[:8]
	baseDir := filepath.Join(root, fmt.Sprintf("%s-%s", timestamp, runID))
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	return &Writer{baseDir: baseDir}, nil
}

// Dir returns the run directory records are written to.
func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteTrainingRecords(records []TrainingRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Epoch),
			strconv.FormatFloat(r.Loss, 'g', -1, 64),
			strconv.Itoa(r.BufferSize),
		})
	}
	return w.writeFile("training.csv", []string{"epoch", "loss", "buffer_size"}, rows)
}

func (w *Writer) WriteValidationRecords(records []ValidationRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Epoch),
			strconv.Itoa(r.ScrambleDepth),
			strconv.FormatFloat(r.SolvePercentage, 'g', -1, 64),
		})
	}
	return w.writeFile("validation.csv", []string{"epoch", "scramble_depth", "solve_percentage"}, rows)
}

func (w *Writer) WriteSolveRecords(records []SolveRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.ScrambleDepth),
			strconv.Itoa(r.CubeIndex),
			strconv.FormatBool(r.Solved),
			strconv.Itoa(r.Steps),
			r.Duration.String(),
			strconv.FormatInt(r.Simulations, 10),
			strconv.FormatInt(r.Expansions, 10),
			strconv.FormatInt(r.MaxSearchDepth, 10),
		})
	}
	header := []string{"scramble_depth", "cube", "solved", "steps", "duration", "simulations", "expansions", "max_search_depth"}
	return w.writeFile("solves.csv", header, rows)
}

func (w *Writer) writeFile(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write %s row: %w", name, err)
		}
	}
	return nil
}
