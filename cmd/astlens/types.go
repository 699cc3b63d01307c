package main

import "github.com/jward/astlens"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	File    string `json:"file,omitempty"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLISpan is a JSON-friendly span. Lines are 1-based, columns 0-based.
type CLISpan struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// CLIRow is one visible tree row.
type CLIRow struct {
	ID          string   `json:"id"`
	Path        string   `json:"path"`
	Depth       int      `json:"depth"`
	Label       string   `json:"label"`
	State       string   `json:"state"`
	Span        *CLISpan `json:"span,omitempty"`
	Selected    bool     `json:"selected,omitempty"`
	Highlighted bool     `json:"highlighted,omitempty"`
}

// CLITree is a rendered frame.
type CLITree struct {
	Language     string          `json:"language"`
	Fallback     bool            `json:"fallback,omitempty"`
	Errors       []CLIParseError `json:"errors,omitempty"`
	Selected     string          `json:"selected,omitempty"`
	SelectedLine int             `json:"selected_line,omitempty"`
	Query        string          `json:"query,omitempty"`
	Matches      []string        `json:"matches,omitempty"`
	Rows         []CLIRow        `json:"rows"`
}

// CLIParseError is a JSON-friendly parse diagnostic.
type CLIParseError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
}

// CLILineEntry is one node covering a line.
type CLILineEntry struct {
	Path string  `json:"path"`
	Kind string  `json:"kind"`
	Span CLISpan `json:"span"`
}

// CLILine lists the nodes covering a line, innermost first.
type CLILine struct {
	Line    int            `json:"line"`
	Text    string         `json:"text"`
	Entries []CLILineEntry `json:"entries"`
}

// CLIField is one property of a selected node.
type CLIField struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// CLISelection describes the selected node.
type CLISelection struct {
	Path      string     `json:"path"`
	Kind      string     `json:"kind"`
	Label     string     `json:"label"`
	Span      *CLISpan   `json:"span,omitempty"`
	Ancestors []string   `json:"ancestors"`
	Fields    []CLIField `json:"fields"`
	Source    string     `json:"source,omitempty"`
}

// CLIMatch is one search hit.
type CLIMatch struct {
	Path  string   `json:"path"`
	Label string   `json:"label"`
	Span  *CLISpan `json:"span,omitempty"`
}

// CLIArchive reports a SQLite export.
type CLIArchive struct {
	Database  string           `json:"database"`
	Written   map[string]int64 `json:"written"`
	Unchanged []string         `json:"unchanged,omitempty"`
}

// CLIArchivedNode is a node read back from a SQLite export.
type CLIArchivedNode struct {
	Path  string   `json:"path"`
	Kind  string   `json:"kind"`
	Label string   `json:"label"`
	Depth int      `json:"depth"`
	Span  *CLISpan `json:"span,omitempty"`
}

// CLIArchived lists nodes from one stored snapshot.
type CLIArchived struct {
	Snapshot int64             `json:"snapshot"`
	Nodes    []CLIArchivedNode `json:"nodes"`
}

func toCLISpan(s *astlens.Span) *CLISpan {
	if s == nil {
		return nil
	}
	return &CLISpan{StartLine: s.StartLine, StartCol: s.StartColumn, EndLine: s.EndLine, EndCol: s.EndColumn}
}

func toCLITree(f astlens.Frame) CLITree {
	t := CLITree{
		Language:     f.Language,
		Fallback:     f.Fallback,
		Selected:     string(f.Selected),
		SelectedLine: f.SelectedLine,
		Query:        f.Query,
		Rows:         make([]CLIRow, 0, len(f.Rows)),
	}
	for _, pe := range f.Errors {
		t.Errors = append(t.Errors, CLIParseError{Message: pe.Message, Line: pe.Line, Col: pe.Column})
	}
	for _, m := range f.Matches {
		t.Matches = append(t.Matches, string(m))
	}
	for _, r := range f.Rows {
		t.Rows = append(t.Rows, CLIRow{
			ID:          string(r.ID),
			Path:        string(r.Path),
			Depth:       r.Depth,
			Label:       r.Label,
			State:       r.State.String(),
			Span:        toCLISpan(r.Span),
			Selected:    r.Selected,
			Highlighted: r.Highlighted,
		})
	}
	return t
}
