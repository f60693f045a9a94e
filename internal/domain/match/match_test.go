package match

import "testing"

func TestNew_EmptyTextFallsBack(t *testing.T) {
	m := New("2019-june-h-1h-q4.png", "", 0.8)
	if m.Text() != NoTextFound {
		t.Errorf("expected %q, got %q", NoTextFound, m.Text())
	}
	if m.IsError() {
		t.Error("regular match must not be the sentinel")
	}
}

func TestFailed_SingleSentinel(t *testing.T) {
	ms := Failed()
	if len(ms) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(ms))
	}
	if ms[0].LabelID() != "error" {
		t.Errorf("expected label id %q, got %q", "error", ms[0].LabelID())
	}
	if ms[0].Similarity() != 0 {
		t.Errorf("expected similarity 0, got %f", ms[0].Similarity())
	}
	if !ms[0].IsError() {
		t.Error("expected IsError")
	}
}
