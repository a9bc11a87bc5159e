package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/tilewarp/pkg/transform"
)

// List styles.
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// specEntry is one row of the flattened spec tree.
type specEntry struct {
	Depth  int
	Label  string
	Detail string
}

// specEntries flattens a spec into pre-order rows for display.
func specEntries(t transform.Transform) []specEntry {
	var out []specEntry
	collectEntries(t, 0, &out)
	return out
}

func collectEntries(t transform.Transform, depth int, out *[]specEntry) {
	*out = append(*out, specEntry{Depth: depth, Label: entryLabel(t), Detail: entryDetail(t)})
	switch n := t.(type) {
	case *transform.List:
		for _, m := range n.Transforms {
			collectEntries(m, depth+1, out)
		}
	case *transform.Interpolated:
		collectEntries(n.A, depth+1, out)
		collectEntries(n.B, depth+1, out)
	}
}

// entryLabel names the node kind the way users refer to it.
func entryLabel(t transform.Transform) string {
	switch n := t.(type) {
	case *transform.Affine:
		return n.Kind.String()
	case *transform.Polynomial:
		return fmt.Sprintf("polynomial (order %d)", n.Order())
	case *transform.List:
		return "list"
	case *transform.Interpolated:
		return "interpolated"
	case *transform.Reference:
		return "ref"
	case *transform.Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// entryDetail renders the node's parameters or identity.
func entryDetail(t transform.Transform) string {
	switch n := t.(type) {
	case *transform.Affine:
		if n.ID != "" {
			return n.ID + "  " + n.DataString()
		}
		return n.DataString()
	case *transform.Polynomial:
		if n.ID != "" {
			return n.ID
		}
		return n.DataString()
	case *transform.List:
		detail := fmt.Sprintf("%d members", len(n.Transforms))
		if n.ID != "" {
			detail = n.ID + "  " + detail
		}
		return detail
	case *transform.Interpolated:
		return fmt.Sprintf("lambda %g", n.Lambda)
	case *transform.Reference:
		return n.RefID
	case *transform.Unknown:
		return n.Class
	default:
		return ""
	}
}

// SpecBrowserModel is the bubbletea model for interactive spec browsing.
type SpecBrowserModel struct {
	Entries  []specEntry
	Cursor   int
	Height   int
	Offset   int
	Selected *specEntry
}

// NewSpecBrowserModel creates a browser over the flattened spec tree.
func NewSpecBrowserModel(entries []specEntry) SpecBrowserModel {
	return SpecBrowserModel{Entries: entries, Height: 15}
}

func (m SpecBrowserModel) Init() tea.Cmd {
	return nil
}

func (m SpecBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			entry := m.Entries[m.Cursor]
			m.Selected = &entry
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m SpecBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Spec Tree"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Entries) {
		end = len(m.Entries)
	}

	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		indent := strings.Repeat("  ", e.Depth)
		line := cursor + indent + e.Label

		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
			if e.Detail != "" {
				b.WriteString("  " + listDimStyle.Render(e.Detail))
			}
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}

// browseSpec runs the interactive browser and prints the selection, if
// any, after the program exits.
func browseSpec(spec transform.Transform) error {
	m := NewSpecBrowserModel(specEntries(spec))
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("spec browser: %w", err)
	}

	fm, ok := finalModel.(SpecBrowserModel)
	if !ok || fm.Selected == nil {
		printDetail("No selection made")
		return nil
	}

	printKeyValue(fm.Selected.Label, fm.Selected.Detail)
	return nil
}
