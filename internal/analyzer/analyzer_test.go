package analyzer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ivlev/melody2video/internal/audio"
	"github.com/ivlev/melody2video/internal/audiotest"
	"github.com/ivlev/melody2video/internal/config"
	"github.com/ivlev/melody2video/internal/errs"
)

func TestDetectorRegistry(t *testing.T) {
	cfg := config.Default().Analysis

	tests := []struct {
		variant  string
		wantErr  bool
		separate bool
	}{
		{"harmonic", false, true},
		{"", false, true}, // default
		{"broadband", false, false},
		{"percussive", true, false},
		{"invalid", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant, cfg, 2)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDetector(%q) error = %v, wantErr %v", tt.variant, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			od, ok := detector.(*OnsetDetector)
			if !ok {
				t.Fatalf("NewDetector(%q) returned %T", tt.variant, detector)
			}
			if od.Separate != tt.separate {
				t.Errorf("Separate = %v, want %v", od.Separate, tt.separate)
			}
		})
	}
}

func TestNewExtractorUnknownDetector(t *testing.T) {
	cfg := config.Default().Analysis
	cfg.Detector = "ocr"

	_, err := NewExtractor(cfg, 1)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("NewExtractor() error = %v, want validation error", err)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := audiotest.WriteWAV(t, dir, "silence.wav", 8000, 1, audiotest.Silence(16000))

	ex, err := NewExtractor(config.Default().Analysis, 2)
	if err != nil {
		t.Fatal(err)
	}
	a, err := ex.AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeFile() error = %v", err)
	}

	if math.Abs(a.Duration-2.0) > 1e-9 {
		t.Errorf("Duration = %f, want 2.0", a.Duration)
	}
	if len(a.Events) != 0 {
		t.Errorf("Events = %v, want none", a.Events)
	}
	// 16000/512 = 31 -> 32 centered frames
	if len(a.Loudness) != 32 {
		t.Errorf("len(Loudness) = %d, want 32", len(a.Loudness))
	}
	for i, v := range a.Loudness {
		if v != 0 {
			t.Fatalf("Loudness[%d] = %f, want 0", i, v)
		}
	}
}

func TestAnalyzeEmptyTrack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := audiotest.WriteEmptyWAV(t, dir, "empty.wav", 44100, 1)

	ex, err := NewExtractor(config.Default().Analysis, 1)
	if err != nil {
		t.Fatal(err)
	}
	a, err := ex.AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeFile() error = %v", err)
	}
	if a.Duration != 0 || len(a.Events) != 0 || len(a.Loudness) != 0 {
		t.Errorf("got %+v, want empty analysis", a)
	}
	if a.LoudnessAt(1.0) != 0 {
		t.Errorf("LoudnessAt on empty curve = %f, want 0", a.LoudnessAt(1.0))
	}
}

func TestAnalyzeMelody(t *testing.T) {
	t.Parallel()

	const sr = 22050
	samples := audiotest.Notes(sr, sr, 0.5, 262, 392, 330, 523)
	dir := t.TempDir()
	path := audiotest.WriteWAV(t, dir, "melody.wav", sr, 1, samples)

	ex, err := NewExtractor(config.Default().Analysis, 4)
	if err != nil {
		t.Fatal(err)
	}
	a, err := ex.AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeFile() error = %v", err)
	}

	if len(a.Events) == 0 {
		t.Fatal("expected melodic events for a four-note melody")
	}
	nearChange := false
	for i, ev := range a.Events {
		if ev < 0 || ev > a.Duration {
			t.Errorf("event %d at %f outside [0, %f]", i, ev, a.Duration)
		}
		if i > 0 && ev < a.Events[i-1] {
			t.Errorf("events not sorted: %v", a.Events)
		}
		for _, b := range []float64{1, 2, 3} {
			if math.Abs(ev-b) < 0.2 {
				nearChange = true
			}
		}
	}
	if !nearChange {
		t.Errorf("no event near a note change: %v", a.Events)
	}

	for i, v := range a.Loudness {
		if v < 0 || v > 1 {
			t.Fatalf("Loudness[%d] = %f outside [0,1]", i, v)
		}
	}
}

type stubDetector struct {
	events []float64
	err    error
}

func (s stubDetector) Detect(context.Context, *audio.Signal) ([]float64, error) {
	return s.events, s.err
}

func TestAnalyzeRejectsBadDetectorOutput(t *testing.T) {
	sig := &audio.Signal{Samples: make([]float64, 8000), SampleRate: 8000, Channels: 1}
	cfg := config.Default().Analysis

	tests := []struct {
		name string
		det  stubDetector
	}{
		{"failure", stubDetector{err: errors.New("boom")}},
		{"unsorted", stubDetector{events: []float64{0.5, 0.2}}},
		{"past end", stubDetector{events: []float64{0.5, 1.5}}},
		{"negative", stubDetector{events: []float64{-0.1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractorWith(cfg, tt.det).Analyze(context.Background(), sig)
			if !errors.Is(err, errs.ErrCompute) {
				t.Fatalf("Analyze() error = %v, want compute error", err)
			}
		})
	}
}

func TestLoudnessAt(t *testing.T) {
	a := &Analysis{
		SampleRate:  1000,
		LoudnessHop: 100,
		Loudness:    []float64{0, 0.25, 0.5, 1},
	}

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{0.099, 0},
		{0.1, 0.25},
		{0.25, 0.5},
		{0.3, 1},
		{10, 1},  // clamped to last
		{-1, 0}, // clamped to first
	}
	for _, tt := range tests {
		if got := a.LoudnessAt(tt.t); got != tt.want {
			t.Errorf("LoudnessAt(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestEventAt(t *testing.T) {
	a := &Analysis{Events: []float64{0.5, 1.0, 1.0, 2.0}}

	tests := []struct {
		t      float64
		want   int
		wantOK bool
	}{
		{0.0, -1, false},
		{0.5, 0, true},
		{0.9, 0, true},
		{1.0, 2, true},
		{5.0, 3, true},
	}
	for _, tt := range tests {
		got, ok := a.EventAt(tt.t)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("EventAt(%v) = (%d, %v), want (%d, %v)", tt.t, got, ok, tt.want, tt.wantOK)
		}
	}
}
