package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/sklearn/model_selection"
)

// Fixed trailing columns of a result table.
const (
	ColTrainRMSE   = "trainRMSE"
	ColValidRMSE   = "validRMSE"
	ColFoldsOK     = "foldsOK"
	ColFoldsFailed = "foldsFailed"
)

var resultColumns = []string{ColTrainRMSE, ColValidRMSE, ColFoldsOK, ColFoldsFailed}

// WriteResultTable writes one row per grid point in enumeration order. The
// RMSE columns of unavailable points hold NA.
func WriteResultTable(w io.Writer, res *model_selection.SearchResult) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, res.ParamNames...), resultColumns...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "dataset: write result header")
	}
	for _, rec := range res.Records {
		row := make([]string, 0, len(header))
		for _, name := range res.ParamNames {
			v, _ := rec.Point.Get(name)
			row = append(row, model.FormatValue(v))
		}
		train, valid := NA, NA
		if !rec.Unavailable {
			train, valid = FormatFloat(rec.TrainRMSE), FormatFloat(rec.ValidRMSE)
		}
		row = append(row, train, valid, strconv.Itoa(rec.FoldsOK), strconv.Itoa(rec.FoldsFailed))
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "dataset: write result row %d", rec.Index)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "dataset: flush result table")
}

// ReadResultTable parses a table written by WriteResultTable. Failures are
// not part of the table and are left empty.
func ReadResultTable(r io.Reader, modelName string) (*model_selection.SearchResult, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset: read result table")
	}
	if len(records) == 0 {
		return nil, errors.NewValidationError("header", "result table is empty", nil)
	}
	header := records[0]
	nParams := len(header) - len(resultColumns)
	if nParams < 1 {
		return nil, errors.NewValidationError("header", "result table needs at least one parameter column", header)
	}
	for i, col := range resultColumns {
		if header[nParams+i] != col {
			return nil, errors.NewValidationError("header", "expected column "+col, header[nParams+i])
		}
	}

	res := &model_selection.SearchResult{
		Model:      modelName,
		ParamNames: append([]string{}, header[:nParams]...),
		Records:    make([]model_selection.Record, 0, len(records)-1),
	}
	for i, row := range records[1:] {
		line := strconv.Itoa(i + 2)
		point := make(model.Params, nParams)
		for j := 0; j < nParams; j++ {
			point[j] = model.Param{Name: header[j], Value: model.ParseValue(row[j])}
		}
		rec := model_selection.Record{Point: point, Index: i}

		tail := row[nParams:]
		if rec.FoldsOK, err = strconv.Atoi(tail[2]); err != nil {
			return nil, errors.NewValidationError("row "+line+" "+ColFoldsOK, "not an integer", tail[2])
		}
		if rec.FoldsFailed, err = strconv.Atoi(tail[3]); err != nil {
			return nil, errors.NewValidationError("row "+line+" "+ColFoldsFailed, "not an integer", tail[3])
		}
		if tail[0] == NA || tail[1] == NA {
			rec.TrainRMSE, rec.ValidRMSE = math.NaN(), math.NaN()
			rec.Unavailable = true
		} else {
			if rec.TrainRMSE, err = strconv.ParseFloat(tail[0], 64); err != nil {
				return nil, errors.NewValidationError("row "+line+" "+ColTrainRMSE, "not a number", tail[0])
			}
			if rec.ValidRMSE, err = strconv.ParseFloat(tail[1], 64); err != nil {
				return nil, errors.NewValidationError("row "+line+" "+ColValidRMSE, "not a number", tail[1])
			}
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// WritePredictions writes an Id,Predicted table with Ids starting at 0.
func WritePredictions(w io.Writer, pred mat.Vector) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Id", "Predicted"}); err != nil {
		return errors.Wrap(err, "dataset: write predictions header")
	}
	for i := 0; i < pred.Len(); i++ {
		if err := cw.Write([]string{strconv.Itoa(i), FormatFloat(pred.AtVec(i))}); err != nil {
			return errors.Wrap(err, "dataset: write predictions")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "dataset: flush predictions")
}

// WriteCurve writes an iteration,value table. Iterations start at 1.
func WriteCurve(w io.Writer, curve model.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"iteration", "value"}); err != nil {
		return errors.Wrap(err, "dataset: write curve header")
	}
	for i, v := range curve.Values {
		if err := cw.Write([]string{strconv.Itoa(i + 1), FormatFloat(v)}); err != nil {
			return errors.Wrap(err, "dataset: write curve")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "dataset: flush curve")
}
