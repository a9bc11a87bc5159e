package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/tilewarp/pkg/transform"
)

func TestSpecEntries(t *testing.T) {
	entries := specEntries(nestedSpec(t))

	want := []specEntry{
		{Depth: 0, Label: "list", Detail: "montage  2 members"},
		{Depth: 1, Label: "translation", Detail: "stage  100.0000000000 50.0000000000"},
		{Depth: 1, Label: "interpolated", Detail: "lambda 0.5"},
		{Depth: 2, Label: "affine", Detail: "1.0000000000 0.0000000000 0.0000000000 1.0000000000 0.0000000000 0.0000000000"},
		{Depth: 2, Label: "polynomial (order 1)", Detail: "0 1 0 0 0 1"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryLabel(t *testing.T) {
	poly, _ := transform.NewPolynomial([2][]float64{{0, 1, 0}, {0, 0, 1}})

	tests := []struct {
		name string
		t    transform.Transform
		want string
	}{
		{"affine", transform.NewAffine(1, 0, 0, 1, 0, 0), "affine"},
		{"translation", transform.NewTranslation(1, 2), "translation"},
		{"rigid", transform.NewRigid(0.1, 1, 2), "rigid"},
		{"similarity", transform.NewSimilarity(2, 0.1, 1, 2), "similarity"},
		{"polynomial", poly, "polynomial (order 1)"},
		{"list", &transform.List{}, "list"},
		{"interpolated", &transform.Interpolated{}, "interpolated"},
		{"reference", &transform.Reference{RefID: "lens"}, "ref"},
		{"unknown", &transform.Unknown{Class: "custom.Warp"}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryLabel(tt.t); got != tt.want {
				t.Errorf("entryLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntryDetail(t *testing.T) {
	stage := transform.NewTranslation(1, 2)
	stage.ID = "stage"

	tests := []struct {
		name string
		t    transform.Transform
		want string
	}{
		{"affine with id", stage, "stage  1.0000000000 2.0000000000"},
		{"list", &transform.List{Transforms: []transform.Transform{stage}}, "1 members"},
		{"interpolated", &transform.Interpolated{Lambda: 0.25}, "lambda 0.25"},
		{"reference", &transform.Reference{RefID: "lens"}, "lens"},
		{"unknown", &transform.Unknown{Class: "custom.Warp"}, "custom.Warp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryDetail(tt.t); got != tt.want {
				t.Errorf("entryDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func browserAfter(t *testing.T, m SpecBrowserModel, msgs ...tea.Msg) SpecBrowserModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		if m, ok = next.(SpecBrowserModel); !ok {
			t.Fatalf("Update() returned %T, want SpecBrowserModel", next)
		}
	}
	return m
}

func TestSpecBrowserNavigation(t *testing.T) {
	m := NewSpecBrowserModel(specEntries(nestedSpec(t)))
	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	m = browserAfter(t, m, down, down)
	if m.Cursor != 2 {
		t.Errorf("cursor = %d after two downs, want 2", m.Cursor)
	}

	m = browserAfter(t, m, up)
	if m.Cursor != 1 {
		t.Errorf("cursor = %d after up, want 1", m.Cursor)
	}

	// Vim keys work too.
	m = browserAfter(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if m.Cursor != 2 {
		t.Errorf("cursor = %d after j, want 2", m.Cursor)
	}
}

func TestSpecBrowserCursorBounds(t *testing.T) {
	m := NewSpecBrowserModel(specEntries(transform.NewTranslation(1, 2)))

	m = browserAfter(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0 (cannot move above the first row)", m.Cursor)
	}

	m = browserAfter(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0 (cannot move past the last row)", m.Cursor)
	}
}

func TestSpecBrowserSelect(t *testing.T) {
	m := NewSpecBrowserModel(specEntries(nestedSpec(t)))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(SpecBrowserModel)
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(SpecBrowserModel)

	if m.Selected == nil {
		t.Fatal("enter should set the selection")
	}
	if m.Selected.Label != "translation" {
		t.Errorf("selected %q, want %q", m.Selected.Label, "translation")
	}
	if cmd == nil {
		t.Fatal("enter should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("enter should return tea.Quit")
	}
}

func TestSpecBrowserQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		m := NewSpecBrowserModel(specEntries(transform.Identity()))
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s should quit", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s should return tea.Quit", key.String())
		}
	}
}

func TestSpecBrowserScrolling(t *testing.T) {
	entries := make([]specEntry, 30)
	for i := range entries {
		entries[i] = specEntry{Label: "affine"}
	}
	m := NewSpecBrowserModel(entries)
	m.Height = 5

	down := tea.KeyMsg{Type: tea.KeyDown}
	for i := 0; i < 10; i++ {
		m = browserAfter(t, m, down)
	}

	if m.Cursor != 10 {
		t.Errorf("cursor = %d, want 10", m.Cursor)
	}
	if m.Offset != 6 {
		t.Errorf("offset = %d, want 6 (cursor stays in the window)", m.Offset)
	}
}

func TestSpecBrowserWindowResize(t *testing.T) {
	m := NewSpecBrowserModel(specEntries(transform.Identity()))

	m = browserAfter(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	if m.Height != 34 {
		t.Errorf("height = %d, want 34", m.Height)
	}

	m = browserAfter(t, m, tea.WindowSizeMsg{Width: 80, Height: 8})
	if m.Height != 5 {
		t.Errorf("height = %d, want 5 (floor)", m.Height)
	}
}

func TestSpecBrowserView(t *testing.T) {
	m := NewSpecBrowserModel(specEntries(nestedSpec(t)))
	view := m.View()

	if !strings.Contains(view, "Spec Tree") {
		t.Error("view is missing the title")
	}
	if !strings.Contains(view, "list") {
		t.Error("view is missing the root entry")
	}
	if !strings.Contains(view, "[1/5]") {
		t.Error("view is missing the position footer")
	}
}
