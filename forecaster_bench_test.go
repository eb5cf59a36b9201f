package forecaster

import (
	"os"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var benchPredictRes *Results

func BenchmarkTrainToModel(b *testing.B) {
	td, opt := setupExample()

	var f *Forecaster
	var err error

	b.ResetTimer()
	for b.Loop() {
		f, err = New(opt)
		if err != nil {
			panic(err)
		}

		if err := f.Fit(td); err != nil {
			panic(err)
		}
	}

	m, err := f.Model()
	if err != nil {
		panic(err)
	}

	bytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile("benchmark_model.json", bytes, 0o644); err != nil {
		panic(err)
	}
}

func BenchmarkPredictFromModel(b *testing.B) {
	bytes, err := os.ReadFile("benchmark_model.json")
	if err != nil {
		b.Skipf("run BenchmarkTrainToModel first, %v", err)
	}

	var model Model
	if err := json.Unmarshal(bytes, &model); err != nil {
		panic(err)
	}
	f, err := NewFromModel(model)
	if err != nil {
		panic(err)
	}

	td, _ := setupExample()
	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		benchPredictRes, err = f.Predict(td)
		if err != nil {
			panic(err)
		}
	}
}
