package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriterCreatesDistinctRunDirs(t *testing.T) {
	root := t.TempDir()

	w1, err := NewWriter(root)
	require.NoError(t, err)
	w2, err := NewWriter(root)
	require.NoError(t, err)

	require.NotEqual(t, w1.Dir(), w2.Dir(), "two runs must never share a directory")
}

func TestWriteTrainingRecords(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	records := []TrainingRecord{
		{Epoch: 1, Loss: 2.5, BufferSize: 100},
		{Epoch: 2, Loss: 1.25, BufferSize: 200},
	}
	require.NoError(t, w.WriteTrainingRecords(records))

	f, err := os.Open(filepath.Join(w.Dir(), "training.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"epoch", "loss", "buffer_size"},
		{"1", "2.5", "100"},
		{"2", "1.25", "200"},
	}, rows)
}

func TestWriteSolveRecords(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	records := []SolveRecord{
		{ScrambleDepth: 3, CubeIndex: 0, Solved: true, Steps: 4, Duration: 25 * time.Millisecond, Simulations: 400, Expansions: 120, MaxSearchDepth: 7},
	}
	require.NoError(t, w.WriteSolveRecords(records))

	f, err := os.Open(filepath.Join(w.Dir(), "solves.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"3", "0", "true", "4", "25ms", "400", "120", "7"}, rows[1])
}
