// Package predict trains the pass/fail classifier on the checkpoint file.
package predict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"student-analytics/internal/config"
	"student-analytics/internal/forest"
	"student-analytics/internal/logging"
	"student-analytics/internal/students"
)

// Dataset is the feature matrix and binary target (1 = pass).
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []int
}

func (d Dataset) Len() int {
	return len(d.Y)
}

// Distribution counts rows per target value.
func (d Dataset) Distribution() map[int]int {
	out := make(map[int]int, 2)
	for _, v := range d.Y {
		out[v]++
	}
	return out
}

var classNames = map[int]string{0: string(students.Fail), 1: string(students.Pass)}

// LoadDataset reads the comma-delimited checkpoint at path. Every missing
// feature column is reported in a single feature-validation error before
// any row is converted.
func LoadDataset(path string, features []string, target string) (Dataset, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Dataset{}, students.Errorf(students.KindSourceNotFound, "load dataset", "processed data file not found: %s", path)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("load dataset: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return Dataset{}, fmt.Errorf("load dataset: %w", df.Err)
	}
	return FromFrame(df, features, target)
}

// FromFrame builds a Dataset from a frame whose cells are text.
func FromFrame(df dataframe.DataFrame, features []string, target string) (Dataset, error) {
	if err := ValidateColumns(df.Names(), features, target); err != nil {
		return Dataset{}, err
	}

	n := df.Nrow()
	X := make([][]float64, n)
	for i := range X {
		X[i] = make([]float64, len(features))
	}
	for j, name := range features {
		for i, cell := range df.Col(name).Records() {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return Dataset{}, students.Errorf(students.KindFeatureValidation, "load dataset",
					"feature %s row %d is not numeric: %q", name, i+1, cell)
			}
			X[i][j] = v
		}
	}

	y := make([]int, n)
	for i, cell := range df.Col(target).Records() {
		if students.ParseLabel(cell) == students.Pass {
			y[i] = 1
		}
	}
	return Dataset{Features: append([]string(nil), features...), X: X, Y: y}, nil
}

// ValidateColumns reports every feature (and the target) absent from columns.
func ValidateColumns(columns, features []string, target string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var missing []string
	for _, feature := range features {
		if !present[feature] {
			missing = append(missing, feature)
		}
	}
	if len(missing) > 0 {
		return students.Errorf(students.KindFeatureValidation, "validate features",
			"missing required features: [%s]", strings.Join(missing, ", "))
	}
	if !present[target] {
		return students.Errorf(students.KindFeatureValidation, "validate features", "missing target column %s", target)
	}
	return nil
}

// Result summarizes one training run.
type Result struct {
	Report      forest.Report
	Importances []float64
	Features    []string
	TrainRows   int
	TestRows    int
	ModelPath   string
}

// Run loads the checkpoint, splits it, fits the forest, prints the
// evaluation to out and saves the model.
func Run(ctx context.Context, model config.Model, paths config.Paths, out io.Writer, log logging.Logger) (Result, error) {
	log.Infof("predict: starting training pipeline")

	data, err := LoadDataset(paths.Checkpoint, model.Features, model.Target)
	if err != nil {
		log.Errorf("predict: %v", err)
		return Result{}, err
	}
	dist := data.Distribution()
	log.Infof("predict: loaded %d rows, features %v, target distribution pass=%d fail=%d", data.Len(), data.Features, dist[1], dist[0])

	trainIdx, testIdx, err := forest.StratifiedSplit(data.Y, model.TestSize, model.RandomSeed)
	if err != nil {
		log.Errorf("predict: %v", err)
		return Result{}, err
	}
	log.Infof("predict: training set %d samples, test set %d samples", len(trainIdx), len(testIdx))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	xTrain, yTrain := subset(data, trainIdx)
	xTest, yTest := subset(data, testIdx)

	rf := forest.New(
		forest.WithEstimators(model.Trees),
		forest.WithMaxDepth(model.MaxDepth),
		forest.WithMinSamplesSplit(model.MinSamplesSplit),
		forest.WithMinSamplesLeaf(model.MinSamplesLeaf),
		forest.WithSeed(model.RandomSeed),
		forest.WithFeatureNames(data.Features),
	)
	if err := rf.Fit(xTrain, yTrain); err != nil {
		log.Errorf("predict: %v", err)
		return Result{}, err
	}
	log.Infof("predict: model training completed")

	report, err := forest.Evaluate(yTest, rf.Predict(xTest), []int{0, 1}, classNames)
	if err != nil {
		return Result{}, err
	}
	importances := rf.FeatureImportances()
	log.Infof("predict: model accuracy %.4f", report.Accuracy)
	printEvaluation(out, report, data.Features, importances)

	if err := forest.Save(paths.ModelFile, rf); err != nil {
		log.Errorf("predict: %v", err)
		return Result{}, err
	}
	log.Infof("predict: model saved to %s", paths.ModelFile)

	return Result{
		Report:      report,
		Importances: importances,
		Features:    data.Features,
		TrainRows:   len(trainIdx),
		TestRows:    len(testIdx),
		ModelPath:   paths.ModelFile,
	}, nil
}

func subset(data Dataset, idx []int) ([][]float64, []int) {
	X := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for k, i := range idx {
		X[k] = data.X[i]
		y[k] = data.Y[i]
	}
	return X, y
}

func printEvaluation(out io.Writer, report forest.Report, features []string, importances []float64) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(out, "\n%s\nMODEL EVALUATION RESULTS\n%s\n", rule, rule)
	fmt.Fprintf(out, "Accuracy: %.4f\n\nClassification Report:\n", report.Accuracy)
	fmt.Fprint(out, report.String())

	fmt.Fprintln(out, "\nFeature Importances:")
	for i, name := range features {
		if i < len(importances) {
			fmt.Fprintf(out, "  %-10s %.4f\n", name, importances[i])
		}
	}
}
