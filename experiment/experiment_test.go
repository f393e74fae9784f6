package experiment

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gridcv/config"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/pkg/log"
)

// writeData writes a noisy linear problem y = 2*x0 - x1 + 0*x2 and a test
// table with testRows rows of testCols columns.
func writeData(t *testing.T, n, testRows, testCols int) (xPath, yPath, testPath string) {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(7, 7))

	var x, y, test strings.Builder
	x.WriteString("g0,g1,g2\n")
	y.WriteString("label\n")
	for i := 0; i < n; i++ {
		a, b, c := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()
		x.WriteString(join(a, b, c))
		y.WriteString(strconv.FormatFloat(2*a-b+0.1*rng.NormFloat64(), 'g', -1, 64) + "\n")
	}
	test.WriteString("g0,g1,g2\n")
	for i := 0; i < testRows; i++ {
		row := make([]float64, testCols)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		test.WriteString(join(row...))
	}

	xPath = filepath.Join(dir, "x.csv")
	yPath = filepath.Join(dir, "y.csv")
	testPath = filepath.Join(dir, "x_test.csv")
	require.NoError(t, os.WriteFile(xPath, []byte(x.String()), 0o644))
	require.NoError(t, os.WriteFile(yPath, []byte(y.String()), 0o644))
	require.NoError(t, os.WriteFile(testPath, []byte(test.String()), 0o644))
	return xPath, yPath, testPath
}

func join(vs ...float64) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(s, ",") + "\n"
}

func testConfig(t *testing.T, xPath, yPath, testPath string) *config.Config {
	cfg := config.Default()
	cfg.TrainFeatures = xPath
	cfg.TrainLabels = yPath
	cfg.TestFeatures = testPath
	cfg.Header = true
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Seed = 3
	cfg.Workers = 2
	cfg.Models = []config.Model{
		{Name: "glmnet", Kind: "elasticnet", Grid: []config.GridParam{
			{Name: "alpha", Values: []interface{}{1.0}},
			{Name: "lambda", Values: []interface{}{0.1, 0.01}},
		}},
		{Name: "broken", Kind: "elasticnet", Grid: []config.GridParam{
			{Name: "alpha", Values: []interface{}{2.0}},
		}},
		{Name: "forest", Kind: "rf", Grid: []config.GridParam{
			{Name: "n_trees", Values: []interface{}{10}},
			{Name: "min_samples_leaf", Values: []interface{}{2}},
			{Name: "seed", Values: []interface{}{1}},
		}},
	}
	return cfg
}

func TestRunWritesOutputs(t *testing.T) {
	xPath, yPath, testPath := writeData(t, 40, 6, 3)
	cfg := testConfig(t, xPath, yPath, testPath)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	summary, err := Run(context.Background(), cfg, logger)
	require.NoError(t, err)

	assert.Len(t, summary.RunID, 8)
	assert.Equal(t, 40, summary.Samples)
	assert.Equal(t, 3, summary.Features)
	require.Len(t, summary.Models, 3)

	glmnet := summary.Models[0]
	require.True(t, glmnet.Selected)
	assert.NoError(t, glmnet.Err)
	assert.Equal(t, "alpha=1,lambda=0.01", glmnet.Best.Point.String())
	assert.Less(t, glmnet.Best.ValidRMSE, 0.5)
	require.NotNil(t, glmnet.Curve)

	broken := summary.Models[1]
	assert.False(t, broken.Selected)
	assert.True(t, errors.Is(broken.Err, errors.ErrEmptyGrid))
	assert.Equal(t, cfg.Folds, broken.FailedUnits())
	assert.True(t, logger.ContainsMessage("No grid point succeeded; model skipped"))

	assert.True(t, summary.Models[2].Selected)

	for _, name := range []string{
		"glmnet_grid.csv", "glmnet_curve.csv", "glmnet_curve.png", "glmnet_predictions.csv",
		"broken_grid.csv",
		"forest_grid.csv", "forest_predictions.csv",
		SummaryFile, ComparisonFile,
	} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, name))
	}
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "broken_predictions.csv"))

	pred, err := os.ReadFile(filepath.Join(cfg.OutputDir, "glmnet_predictions.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(pred)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Id,Predicted", lines[0])
	assert.True(t, strings.HasPrefix(lines[6], "5,"))

	grid, err := os.ReadFile(filepath.Join(cfg.OutputDir, "broken_grid.csv"))
	require.NoError(t, err)
	assert.Equal(t, "alpha,trainRMSE,validRMSE,foldsOK,foldsFailed\n2,NA,NA,0,5\n", string(grid))

	sum, err := os.ReadFile(filepath.Join(cfg.OutputDir, SummaryFile))
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(string(sum)), "\n")
	require.Len(t, rows, 4)
	assert.True(t, strings.HasPrefix(rows[2], "broken,elasticnet,NA,NA,NA,0,5,"))
}

func TestRunIsIndependentOfWorkers(t *testing.T) {
	xPath, yPath, _ := writeData(t, 30, 0, 3)
	read := func(workers int) string {
		cfg := testConfig(t, xPath, yPath, "")
		cfg.Models = cfg.Models[2:]
		cfg.Workers = workers
		_, err := Run(context.Background(), cfg, nil)
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "forest_grid.csv"))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, read(1), read(4))
}

func TestRunAbortsOnConfigurationErrors(t *testing.T) {
	xPath, yPath, testPath := writeData(t, 8, 2, 2)

	t.Run("too many folds", func(t *testing.T) {
		cfg := testConfig(t, xPath, yPath, "")
		cfg.Folds = 9
		_, err := Run(context.Background(), cfg, nil)
		var cerr *errors.InvalidConfigurationError
		assert.True(t, errors.As(err, &cerr), "got %v", err)
	})

	t.Run("test feature width", func(t *testing.T) {
		cfg := testConfig(t, xPath, yPath, testPath)
		_, err := Run(context.Background(), cfg, nil)
		var derr *errors.DimensionError
		assert.True(t, errors.As(err, &derr), "got %v", err)
	})

	t.Run("missing labels", func(t *testing.T) {
		cfg := testConfig(t, xPath, filepath.Join(t.TempDir(), "none.csv"), "")
		_, err := Run(context.Background(), cfg, nil)
		assert.Error(t, err)
	})
}

func TestRunAbortOnFailure(t *testing.T) {
	xPath, yPath, _ := writeData(t, 20, 0, 3)
	cfg := testConfig(t, xPath, yPath, "")
	cfg.AbortOnFailure = true

	_, err := Run(context.Background(), cfg, nil)
	var ff *errors.FitFailure
	require.True(t, errors.As(err, &ff), "got %v", err)
	assert.Equal(t, "alpha=2", ff.Point)
}

func TestRunCancelled(t *testing.T) {
	xPath, yPath, _ := writeData(t, 20, 0, 3)
	cfg := testConfig(t, xPath, yPath, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, nil)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
