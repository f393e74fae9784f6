package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gridcv dev\n", out)
}

func TestSelect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glmnet_grid.csv")
	table := "alpha,lambda,trainRMSE,validRMSE,foldsOK,foldsFailed\n" +
		"0,1,NA,NA,0,5\n" +
		"0,0,0.5,0.9,5,0\n" +
		"1,1,0.4,0.7,5,0\n" +
		"1,0,0.3,0.7,5,0\n"
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	out, err := execute(t, "select", "--results", path, "--top", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "glmnet\talpha=1,lambda=1\ttrainRMSE=0.4\tvalidRMSE=0.7", lines[0])
	assert.Equal(t, "1\talpha=1,lambda=1\t0.7", lines[1])
	assert.Equal(t, "3\talpha=0,lambda=0\t0.9", lines[3])
}

func TestSelectAllUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m_grid.csv")
	require.NoError(t, os.WriteFile(path, []byte("alpha,trainRMSE,validRMSE,foldsOK,foldsFailed\n2,NA,NA,0,5\n"), 0o644))

	_, err := execute(t, "select", "--results", path)
	assert.Error(t, err)
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestRunWithOverrides(t *testing.T) {
	dir := t.TempDir()
	var x, y strings.Builder
	for i := 0; i < 20; i++ {
		a := float64(i%7) - 3
		b := float64(i%5) - 2
		x.WriteString(strings.Join([]string{ftoa(a), ftoa(b)}, ",") + "\n")
		y.WriteString(ftoa(3*a-b) + "\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.csv"), []byte(x.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "y.csv"), []byte(y.String()), 0o644))
	experimentYAML := `
train_features: x.csv
train_labels: y.csv
folds: 4
models:
  - name: ols
    kind: linear_regression
    grid:
      - {name: fit_intercept, values: [true, false]}
`
	cfgPath := filepath.Join(dir, "experiment.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(experimentYAML), 0o644))

	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "run", "--config", cfgPath, "--workers", "2", "--out", outDir, "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "ols")
	assert.Contains(t, out, "fit_intercept=")
	assert.FileExists(t, filepath.Join(outDir, "ols_grid.csv"))
	assert.FileExists(t, filepath.Join(outDir, "summary.csv"))

	_, err = execute(t, "run", "--config", cfgPath, "--log-format", "xml")
	assert.Error(t, err)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
