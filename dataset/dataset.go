// Package dataset reads and writes the delimited tables of an experiment:
// feature and label matrices, grid-search result tables, prediction tables
// and convergence curves.
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/sklearn/model_selection"
)

// Options describe the layout of an input table.
type Options struct {
	// Delimiter separates fields; zero means ','.
	Delimiter rune

	// Header reports whether the first row holds column names.
	Header bool
}

func (o Options) reader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = ','
	if o.Delimiter != 0 {
		cr.Comma = o.Delimiter
	}
	cr.TrimLeadingSpace = true
	// ragged rows are reported with row numbers by ReadMatrix
	cr.FieldsPerRecord = -1
	return cr
}

// ReadMatrix parses a numeric table. It returns the column names when
// opts.Header is set.
func ReadMatrix(r io.Reader, opts Options) (*mat.Dense, []string, error) {
	records, err := opts.reader(r).ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "dataset: read table")
	}

	var names []string
	if opts.Header && len(records) > 0 {
		names = records[0]
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, nil, errors.WithStack(errors.ErrEmptyData)
	}

	cols := len(records[0])
	if names != nil && len(names) != cols {
		return nil, nil, errors.NewValidationError("header", "header has a different number of columns than the data", len(names))
	}
	data := make([]float64, 0, len(records)*cols)
	for i, rec := range records {
		row := i + 1
		if opts.Header {
			row++
		}
		if len(rec) != cols {
			return nil, nil, errors.NewValidationError("row "+strconv.Itoa(row), "expected "+strconv.Itoa(cols)+" fields", len(rec))
		}
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, errors.NewValidationError("row "+strconv.Itoa(row)+" column "+strconv.Itoa(j+1), "not a number", field)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(records), cols, data), names, nil
}

// ReadVector parses a single-column numeric table.
func ReadVector(r io.Reader, opts Options) (*mat.VecDense, error) {
	m, _, err := ReadMatrix(r, opts)
	if err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	if cols != 1 {
		return nil, errors.NewValidationError("labels", "label table must have exactly one column", cols)
	}
	return mat.NewVecDense(rows, m.RawMatrix().Data), nil
}

// ReadMatrixFile is ReadMatrix on a file.
func ReadMatrixFile(path string, opts Options) (*mat.Dense, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	m, names, err := ReadMatrix(f, opts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dataset: %s", path)
	}
	return m, names, nil
}

// ReadVectorFile is ReadVector on a file.
func ReadVectorFile(path string, opts Options) (*mat.VecDense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	v, err := ReadVector(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: %s", path)
	}
	return v, nil
}

// Load reads a feature table and its label table into a Dataset.
func Load(featuresPath, labelsPath string, opts Options) (*model_selection.Dataset, error) {
	X, names, err := ReadMatrixFile(featuresPath, opts)
	if err != nil {
		return nil, err
	}
	y, err := ReadVectorFile(labelsPath, opts)
	if err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	if y.Len() != rows {
		return nil, errors.NewValidationError("labels", "label count does not match feature rows ("+strconv.Itoa(rows)+")", y.Len())
	}
	d, err := model_selection.NewDataset(X, y)
	if err != nil {
		return nil, err
	}
	d.FeatureNames = names
	return d, nil
}

// Create creates path, and its parent directories, for writing.
func Create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "dataset: create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: create %s", path)
	}
	return f, nil
}

// WriteFile creates path and writes it with fn, reporting the first error of
// fn or Close.
func WriteFile(path string, fn func(io.Writer) error) (err error) {
	f, err := Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "dataset: close %s", path)
		}
	}()
	return fn(f)
}

// FormatFloat renders v for output tables; non-finite values become NA.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// NA marks a missing value in output tables.
const NA = "NA"
