package experiment

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/gridcv/dataset"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/pkg/log"
	"github.com/YuminosukeSato/gridcv/report"
)

var summaryHeader = []string{"model", "kind", "best", "trainRMSE", "validRMSE", "foldsOK", "failedUnits", "status"}

// WriteSummary writes one row per model. Skipped models carry NA in the
// RMSE columns and the reason in status.
func WriteSummary(w io.Writer, s *Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return errors.Wrap(err, "experiment: write summary header")
	}
	for _, m := range s.Models {
		best, train, valid, ok := dataset.NA, dataset.NA, dataset.NA, "0"
		if m.Selected {
			best = m.Best.Point.String()
			train = dataset.FormatFloat(m.Best.TrainRMSE)
			valid = dataset.FormatFloat(m.Best.ValidRMSE)
			ok = strconv.Itoa(m.Best.FoldsOK)
		}
		status := "ok"
		if m.Err != nil {
			status = m.Err.Error()
		}
		row := []string{m.Name, m.Kind, best, train, valid, ok, strconv.Itoa(m.FailedUnits()), status}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "experiment: write summary row %s", m.Name)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "experiment: flush summary")
}

func writeSummaryFiles(dir string, s *Summary, logger log.Logger) error {
	path := filepath.Join(dir, SummaryFile)
	if err := dataset.WriteFile(path, func(w io.Writer) error {
		return WriteSummary(w, s)
	}); err != nil {
		return err
	}
	s.Files = append(s.Files, path)

	var bars []report.Bar
	for _, m := range s.Models {
		if m.Selected && m.Err == nil {
			bars = append(bars, report.Bar{Label: m.Name, Value: m.Best.ValidRMSE})
		}
	}
	if len(bars) == 0 {
		logger.Warn("No model produced a result; comparison chart skipped")
		return nil
	}
	pngPath := filepath.Join(dir, ComparisonFile)
	if err := report.ComparisonPNG(pngPath, bars, "Cross-validated RMSE of the best point", "validation RMSE"); err != nil {
		return err
	}
	s.Files = append(s.Files, pngPath)
	return nil
}
