// Package output renders evaluation results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/agent462/hostlist/internal/eval"
	"github.com/agent462/hostlist/internal/grouper"
	"github.com/agent462/hostlist/internal/hostlist"
)

// Color palette.
var (
	colorGreen  = lipgloss.Color("#04B575")
	colorRed    = lipgloss.Color("#FF4672")
	colorYellow = lipgloss.Color("#FDFF90")
	colorCyan   = lipgloss.Color("#00E5FF")
	colorSubtle = lipgloss.Color("#626262")
)

var (
	hostStyle   = lipgloss.NewStyle().Foreground(colorCyan)
	numberStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(colorSubtle)
)

// Output modes.
const (
	ModeRanged   = "ranged"
	ModeExpanded = "expanded"
	ModeJSON     = "json"
)

// Formatter formats evaluation results for terminal display.
type Formatter struct {
	Mode   string
	Color  bool
	MaxLen int // bound on ranged list output; 0 = unlimited
}

// NewFormatter creates a Formatter with the given options.
func NewFormatter(mode string, color bool, maxLen int) *Formatter {
	if mode == "" {
		mode = ModeRanged
	}
	return &Formatter{Mode: mode, Color: color, MaxLen: maxLen}
}

// Format renders r followed by a newline. Empty host output renders as
// nothing in the text modes.
func (f *Formatter) Format(r eval.Result) (string, error) {
	if f.Mode == ModeJSON {
		data, err := f.FormatJSON(r)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	}

	switch r.Kind {
	case eval.KindList:
		if r.List == nil {
			return "", nil
		}
		if f.Mode == ModeExpanded {
			return f.lines(r.List.Hosts()), nil
		}
		s, _ := r.List.RangedString(f.MaxLen)
		if s == "" {
			return "", nil
		}
		return f.style(s, hostStyle) + "\n", nil
	case eval.KindHosts:
		return f.lines(r.Hosts), nil
	case eval.KindNumber:
		return f.style(fmt.Sprintf("%d", r.Number), numberStyle) + "\n", nil
	case eval.KindText:
		return r.Text + "\n", nil
	case eval.KindGroups:
		return f.groups(r.Groups), nil
	default:
		return "", fmt.Errorf("unknown result kind %d", r.Kind)
	}
}

// groups renders one "value: hosts" line per group, the norm first.
func (f *Formatter) groups(groups []grouper.ValueGroup) string {
	var b strings.Builder
	for _, g := range groups {
		label := fmt.Sprintf("%s (%d %s):", g.Value, len(g.Hosts), plural("host", len(g.Hosts)))
		if g.IsNorm {
			b.WriteString(f.style(label, numberStyle))
		} else {
			b.WriteString(f.style(label, warnStyle))
		}
		b.WriteString(" ")
		if f.Mode == ModeExpanded {
			b.WriteString(f.style(strings.Join(g.Hosts, ","), hostStyle))
		} else {
			b.WriteString(f.style(rangedHosts(g.Hosts, f.MaxLen), hostStyle))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func rangedHosts(hosts []string, maxLen int) string {
	hl := hostlist.FromHosts(hosts...)
	defer hl.Release()
	s, _ := hl.RangedString(maxLen)
	return s
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// jsonResult is the JSON shape of a Result.
type jsonResult struct {
	Kind   string      `json:"kind"`
	Hosts  []string    `json:"hosts,omitempty"`
	Range  string      `json:"range,omitempty"`
	Count  *int        `json:"count,omitempty"`
	Number *int        `json:"number,omitempty"`
	Text   *string     `json:"text,omitempty"`
	Groups []jsonGroup `json:"groups,omitempty"`
}

type jsonGroup struct {
	Value string   `json:"value"`
	Hosts []string `json:"hosts"`
	Range string   `json:"range"`
	Norm  bool     `json:"norm"`
}

// FormatJSON serializes r as an indented JSON object.
func (f *Formatter) FormatJSON(r eval.Result) ([]byte, error) {
	var out jsonResult
	switch r.Kind {
	case eval.KindList:
		out.Kind = "list"
		out.Hosts = []string{}
		n := 0
		if r.List != nil {
			out.Hosts = r.List.Hosts()
			out.Range, _ = r.List.RangedString(f.MaxLen)
			n = r.List.Count()
		}
		out.Count = &n
	case eval.KindHosts:
		out.Kind = "hosts"
		out.Hosts = r.Hosts
		if out.Hosts == nil {
			out.Hosts = []string{}
		}
		n := len(r.Hosts)
		out.Count = &n
	case eval.KindNumber:
		out.Kind = "number"
		out.Number = &r.Number
	case eval.KindText:
		out.Kind = "text"
		out.Text = &r.Text
	case eval.KindGroups:
		out.Kind = "groups"
		for _, g := range r.Groups {
			out.Groups = append(out.Groups, jsonGroup{
				Value: g.Value,
				Hosts: g.Hosts,
				Range: rangedHosts(g.Hosts, 0),
				Norm:  g.IsNorm,
			})
		}
	default:
		return nil, fmt.Errorf("unknown result kind %d", r.Kind)
	}
	return json.MarshalIndent(out, "", "  ")
}

// FormatError renders err for display.
func (f *Formatter) FormatError(err error) string {
	return f.style("error: ", errorStyle) + err.Error() + "\n"
}

// GroupRow is one line of the group table.
type GroupRow struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Range       string `json:"range"`
	Description string `json:"description,omitempty"`
}

// FormatGroups renders rows as an aligned table with a header.
func (f *Formatter) FormatGroups(rows []GroupRow) string {
	if f.Mode == ModeJSON {
		return f.asJSON(rows)
	}
	if len(rows) == 0 {
		return f.style("no groups defined", subtleStyle) + "\n"
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.Name, fmt.Sprintf("%d", r.Count), r.Range, r.Description})
	}
	return f.table([]string{"GROUP", "HOSTS", "RANGE", "DESCRIPTION"}, table)
}

// RecipeRow is one line of the recipe listing.
type RecipeRow struct {
	Name        string   `json:"name"`
	Builtin     bool     `json:"builtin"`
	Steps       []string `json:"steps"`
	Description string   `json:"description,omitempty"`
}

// FormatRecipes renders the recipe listing as a table, or as JSON in JSON
// mode.
func (f *Formatter) FormatRecipes(rows []RecipeRow) string {
	if f.Mode == ModeJSON {
		return f.asJSON(rows)
	}
	if len(rows) == 0 {
		return f.style("no recipes defined", subtleStyle) + "\n"
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		source := "config"
		if r.Builtin {
			source = "builtin"
		}
		table = append(table, []string{r.Name, source, fmt.Sprintf("%d", len(r.Steps)), r.Description})
	}
	return f.table([]string{"RECIPE", "SOURCE", "STEPS", "DESCRIPTION"}, table)
}

func (f *Formatter) asJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return f.FormatError(err)
	}
	return string(data) + "\n"
}

// table aligns rows under headers with a dashed rule between them.
func (f *Formatter) table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, v := range row {
			widths[i] = max(widths[i], len(v))
		}
	}

	formatRow := func(values []string) string {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprintf("%-*s", widths[i], v)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var sb strings.Builder
	sb.WriteString(f.style(formatRow(headers), headerStyle))
	sb.WriteString("\n")

	dashes := make([]string, len(widths))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	sb.WriteString(strings.Join(dashes, "  "))
	sb.WriteString("\n")

	for _, row := range rows {
		sb.WriteString(formatRow(row))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *Formatter) lines(hosts []string) string {
	if len(hosts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, h := range hosts {
		b.WriteString(f.style(h, hostStyle))
		b.WriteString("\n")
	}
	return b.String()
}

func (f *Formatter) style(text string, s lipgloss.Style) string {
	if !f.Color {
		return text
	}
	return s.Render(text)
}
