// Package testutil provides shared test infrastructure for the queue simulator.
// It consolidates golden dataset types and assertion helpers used across
// sim/ and its sub-package tests.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is a fixed schedule with its hand-traced expected output.
type GoldenTestCase struct {
	Name     string        `json:"name"`
	Servers  int           `json:"servers"`
	Arrivals []int64       `json:"arrivals"`
	Services []int64       `json:"services"`
	Metrics  GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected output of a golden test case.
type GoldenMetrics struct {
	// Exact per-job values, by job index
	Delays     []int64 `json:"delays"`
	Departures []int64 `json:"departures"`

	// Aggregates
	AvgDelay   float64 `json:"avg_delay"`
	AvgService float64 `json:"avg_service"`
	Span       int64   `json:"span"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// ClassicArrivals and ClassicServices are the ten-job fixed schedule used
// throughout the tests.
var (
	ClassicArrivals = []int64{15, 47, 71, 111, 123, 142, 166, 266, 310, 320}
	ClassicServices = []int64{43, 36, 34, 30, 38, 40, 31, 29, 36, 30}
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
