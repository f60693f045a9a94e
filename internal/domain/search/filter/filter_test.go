package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paperfinder/paperfinder/internal/domain"
)

func TestDefault(t *testing.T) {
	f := Default()
	if f.TopK() != 25 {
		t.Errorf("expected topK 25, got %d", f.TopK())
	}
	if f.Backend() != BackendPrimary {
		t.Errorf("expected primary backend, got %s", f.Backend())
	}
	if f.Metadata() != nil {
		t.Errorf("expected nil metadata, got %v", f.Metadata())
	}
}

func TestNew_TopKBounds(t *testing.T) {
	tests := []struct {
		topK    int
		want    int
		wantErr bool
	}{
		{0, DefaultTopK, false},
		{1, 1, false},
		{50, 50, false},
		{51, 0, true},
		{-3, 0, true},
	}
	for _, tc := range tests {
		f, err := New("", "", tc.topK, "")
		if tc.wantErr {
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("topK=%d: expected ErrInvalidInput, got %v", tc.topK, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("topK=%d: unexpected error: %v", tc.topK, err)
		}
		if f.TopK() != tc.want {
			t.Errorf("topK=%d: got %d, want %d", tc.topK, f.TopK(), tc.want)
		}
	}
}

func TestNew_RejectsUnknownValues(t *testing.T) {
	cases := []struct {
		name                       string
		level, calculator, backend string
	}{
		{"level", "medium", "", ""},
		{"calculator", "", "sometimes", ""},
		{"backend", "", "", "method3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.level, tc.calculator, 10, tc.backend)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParseLevel_Aliases(t *testing.T) {
	for in, want := range map[string]Level{
		"":           LevelAll,
		"all":        LevelAll,
		"h":          LevelHigher,
		"higher":     LevelHigher,
		"f":          LevelFoundation,
		"foundation": LevelFoundation,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestMetadata(t *testing.T) {
	tests := []struct {
		name              string
		level, calculator string
		want              map[string]any
	}{
		{"none", "all", "all", nil},
		{"level only", "h", "all", map[string]any{"level": "h"}},
		{"calculator", "all", "calculator", map[string]any{
			"paper_number": map[string]any{"$in": []string{"2", "3"}},
		}},
		{"non-calculator foundation", "f", "non-calculator", map[string]any{
			"level":        "f",
			"paper_number": "1",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.level, tc.calculator, 10, "")
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := f.Metadata(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Metadata() = %#v, want %#v", got, tc.want)
			}
		})
	}
}
