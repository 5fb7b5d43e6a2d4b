package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/pipeline"
	"github.com/matzehuels/uvmigrate/pkg/uv"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ReviewModel - Interactive dependency review
// =============================================================================

// reviewItem is one dependency in the review list.
type reviewItem struct {
	dep  deps.Dependency
	keep bool
}

// ReviewModel is the bubbletea model for the pre-migration dependency review.
// Every dependency starts as kept; space toggles, enter confirms, esc aborts.
type ReviewModel struct {
	Items     []reviewItem
	Cursor    int
	Confirmed bool
	Aborted   bool
	Height    int
	Offset    int
}

// NewReviewModel creates a review model with every dependency kept.
func NewReviewModel(list []deps.Dependency) ReviewModel {
	items := make([]reviewItem, len(list))
	for i, d := range list {
		items[i] = reviewItem{dep: d, keep: true}
	}
	return ReviewModel{Items: items, Height: 15}
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = true
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Items)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ":
			if len(m.Items) > 0 {
				m.Items[m.Cursor].keep = !m.Items[m.Cursor].keep
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 7
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ReviewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Review Dependencies"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space keep/drop  ⏎ confirm  esc abort"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Items) {
		end = len(m.Items)
	}

	for i := m.Offset; i < end; i++ {
		it := m.Items[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		marker := StyleSuccess.Render(iconSuccess)
		if !it.keep {
			marker = listDimStyle.Render(iconError)
		}

		line := fmt.Sprintf("%s%s %-36s %s", cursor, marker, uv.RenderSpec(it.dep), listDimStyle.Render(kindLabel(it.dep)))

		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case !it.keep:
			b.WriteString(listDimStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  keeping %d of %d", m.Cursor+1, len(m.Items), m.keptCount(), len(m.Items))))

	return b.String()
}

// Kept returns the dependencies still marked as kept, in order.
func (m ReviewModel) Kept() []deps.Dependency {
	kept := make([]deps.Dependency, 0, len(m.Items))
	for _, it := range m.Items {
		if it.keep {
			kept = append(kept, it.dep)
		}
	}
	return kept
}

func (m ReviewModel) keptCount() int {
	n := 0
	for _, it := range m.Items {
		if it.keep {
			n++
		}
	}
	return n
}

// kindLabel formats the dependency's placement for display.
func kindLabel(d deps.Dependency) string {
	if d.Kind == deps.KindGroup {
		return "group:" + d.Group
	}
	return d.Kind.String()
}

// =============================================================================
// Review Hook
// =============================================================================

// reviewExtraction runs the interactive review and prunes dropped
// dependencies from the extraction. It satisfies pipeline.ReviewFunc and
// runs after extraction, before any file is touched.
func (c *CLI) reviewExtraction(ctx context.Context, ex *deps.Extraction) error {
	logger := loggerFromContext(ctx)
	if len(ex.Deps) == 0 {
		logger.Debug("nothing to review")
		return nil
	}

	p := tea.NewProgram(NewReviewModel(ex.Deps), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "dependency review failed")
	}

	m, ok := final.(ReviewModel)
	if !ok || m.Aborted || !m.Confirmed {
		return pipeline.ErrReviewAborted
	}

	kept := m.Kept()
	if dropped := len(ex.Deps) - len(kept); dropped > 0 {
		logger.Debugf("review dropped %d dependencies", dropped)
	}
	ex.Deps = kept
	return nil
}
