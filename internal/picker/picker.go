package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// Item is one selectable row.
type Item struct {
	Title  string
	Detail string // second line, usually the URL or folder path
	URL    string
}

// Picker is a small TUI for choosing one or several items from a list.
type Picker struct {
	items     []Item
	header    string
	multi     bool
	keys      KeyMap
	cursor    int
	offset    int
	chosen    map[int]bool
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int
}

// New creates a single-select Picker.
func New(items []Item, header string) Picker {
	return Picker{
		items:  items,
		header: header,
		keys:   DefaultKeyMap(),
		chosen: make(map[int]bool),
		width:  80,
		height: 24,
	}
}

// NewMulti creates a Picker where space toggles items and enter confirms
// the toggled set.
func NewMulti(items []Item, header string) Picker {
	p := New(items, header)
	p.multi = true
	return p
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.scroll()
		return p, nil

	case tea.KeyMsg:
		p.status = ""
		switch {
		case key.Matches(msg, p.keys.Quit):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Confirm):
			p.selected = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.items)-1 {
				p.cursor++
			}

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}

		case key.Matches(msg, p.keys.Top):
			p.cursor = 0

		case key.Matches(msg, p.keys.Bottom):
			p.cursor = max(len(p.items)-1, 0)

		case key.Matches(msg, p.keys.Toggle):
			if p.multi && len(p.items) > 0 {
				p.toggle(p.cursor)
				if p.cursor < len(p.items)-1 {
					p.cursor++
				}
			}

		case key.Matches(msg, p.keys.All):
			if p.multi {
				p.toggleAll()
			}

		case key.Matches(msg, p.keys.YankURL):
			p.yank()
		}
		p.scroll()
	}

	return p, nil
}

func (p *Picker) toggle(i int) {
	if p.chosen[i] {
		delete(p.chosen, i)
	} else {
		p.chosen[i] = true
	}
}

// toggleAll selects everything, or clears the selection when everything
// is already selected.
func (p *Picker) toggleAll() {
	if len(p.chosen) == len(p.items) {
		p.chosen = make(map[int]bool)
		return
	}
	for i := range p.items {
		p.chosen[i] = true
	}
}

func (p *Picker) yank() {
	if len(p.items) == 0 {
		return
	}
	u := p.items[p.cursor].URL
	if u == "" {
		return
	}
	if err := writeClipboard(u); err != nil {
		p.status = "copy failed: " + err.Error()
		return
	}
	p.status = "copied " + u
}

// visible returns how many items fit on screen; each takes two lines.
func (p Picker) visible() int {
	n := (p.height - 6) / 2
	if n < 1 {
		n = 1
	}
	return n
}

func (p *Picker) scroll() {
	n := p.visible()
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+n {
		p.offset = p.cursor - n + 1
	}
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	// Header
	header := fmt.Sprintf("%s (%d)", p.header, len(p.items))
	if p.multi {
		header = fmt.Sprintf("%s (%d/%d selected)", p.header, len(p.chosen), len(p.items))
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n\n")

	end := min(p.offset+p.visible(), len(p.items))
	for i := p.offset; i < end; i++ {
		item := p.items[i]
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		mark := ""
		if p.multi {
			mark = "[ ] "
			if p.chosen[i] {
				mark = "[x] "
			}
		}

		b.WriteString(fmt.Sprintf("%s%s%s\n", cursor, mark, style.Render(item.Title)))
		b.WriteString(fmt.Sprintf("   %s\n", detailStyle.Render(item.Detail)))
	}

	// Footer
	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(helpStyle.Render(p.status))
		b.WriteString("\n")
	}
	help := "j/k: move  Y: copy url  Enter: open  q/Esc: cancel"
	if p.multi {
		help = "j/k: move  space: toggle  a: all  Enter: import  q/Esc: cancel"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// Selected returns the indexes of the chosen items in list order, or nil
// if the picker was cancelled. A single-select picker returns the item
// under the cursor; a multi-select picker with nothing toggled does too.
func (p Picker) Selected() []int {
	if p.cancelled || !p.selected || len(p.items) == 0 {
		return nil
	}
	if !p.multi || len(p.chosen) == 0 {
		return []int{p.cursor}
	}
	out := make([]int, 0, len(p.chosen))
	for i := range p.items {
		if p.chosen[i] {
			out = append(out, i)
		}
	}
	return out
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}

// Run shows the picker on the terminal and returns the chosen indexes.
func Run(p Picker) ([]int, error) {
	final, err := tea.NewProgram(p).Run()
	if err != nil {
		return nil, err
	}
	return final.(Picker).Selected(), nil
}
