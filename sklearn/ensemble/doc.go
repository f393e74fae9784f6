// Package ensemble provides tree ensembles for regression: a bagged random
// forest and second-order gradient boosting.
package ensemble
