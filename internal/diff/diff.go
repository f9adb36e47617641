// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType
	Content string
	OldNum  int
	NewNum  int
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// DiffResult contains the complete diff information
type DiffResult struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// Diff generates a line-by-line diff between two contents
func (e *Engine) Diff(oldContent, newContent []byte) *DiffResult {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	script := editScript(oldLines, newLines, maxTableCells)

	result := &DiffResult{Hunks: e.group(script)}
	for _, line := range script {
		switch line.Type {
		case Addition:
			result.Stats.Additions++
		case Deletion:
			result.Stats.Deletions++
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions
	return result
}

// Empty reports whether the two contents had no line differences.
func (r *DiffResult) Empty() bool {
	return r.Stats.Changes == 0
}

func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
}

// maxTableCells caps the LCS table built for the changed middle of a diff.
const maxTableCells = 1 << 22

// editScript produces every line of both inputs in order, tagged as context,
// addition or deletion. Common leading and trailing lines are matched
// directly; the rest goes through a longest-common-subsequence table unless
// that table would exceed maxCells, in which case the middle is reported as
// deleted then added.
func editScript(oldLines, newLines [][]byte, maxCells int) []Line {
	n, m := len(oldLines), len(newLines)
	script := make([]Line, 0, n+m)

	prefix := 0
	for prefix < n && prefix < m && bytes.Equal(oldLines[prefix], newLines[prefix]) {
		prefix++
	}
	suffix := 0
	for suffix < n-prefix && suffix < m-prefix && bytes.Equal(oldLines[n-1-suffix], newLines[m-1-suffix]) {
		suffix++
	}

	for k := 0; k < prefix; k++ {
		script = append(script, Line{Type: Context, Content: string(oldLines[k]), OldNum: k + 1, NewNum: k + 1})
	}

	oldMid, newMid := oldLines[prefix:n-suffix], newLines[prefix:m-suffix]
	if len(oldMid) > 0 && len(newMid) > maxCells/len(oldMid) {
		for k, line := range oldMid {
			script = append(script, Line{Type: Deletion, Content: string(line), OldNum: prefix + k + 1})
		}
		for k, line := range newMid {
			script = append(script, Line{Type: Addition, Content: string(line), NewNum: prefix + k + 1})
		}
	} else {
		script = lcsScript(script, oldMid, newMid, prefix)
	}

	for k := suffix; k > 0; k-- {
		script = append(script, Line{Type: Context, Content: string(oldLines[n-k]), OldNum: n - k + 1, NewNum: m - k + 1})
	}
	return script
}

// lcsScript appends the edit script for oldLines and newLines to script.
// Line numbers are shifted by offset.
func lcsScript(script []Line, oldLines, newLines [][]byte, offset int) []Line {
	n, m := len(oldLines), len(newLines)

	// lcs[i][j] is the LCS length of oldLines[i:] and newLines[j:].
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if bytes.Equal(oldLines[i], newLines[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && bytes.Equal(oldLines[i], newLines[j]):
			script = append(script, Line{Type: Context, Content: string(oldLines[i]), OldNum: offset + i + 1, NewNum: offset + j + 1})
			i++
			j++
		case j < m && (i == n || lcs[i][j+1] >= lcs[i+1][j]):
			script = append(script, Line{Type: Addition, Content: string(newLines[j]), NewNum: offset + j + 1})
			j++
		default:
			script = append(script, Line{Type: Deletion, Content: string(oldLines[i]), OldNum: offset + i + 1})
			i++
		}
	}
	return script
}

// group cuts the edit script into hunks, keeping contextLines of unchanged
// lines around each change and merging changes whose context overlaps.
func (e *Engine) group(script []Line) []Hunk {
	var hunks []Hunk
	start := -1
	end := -1
	for idx, line := range script {
		if line.Type == Context {
			continue
		}
		lo := max(0, idx-e.contextLines)
		hi := min(len(script), idx+e.contextLines+1)
		if start >= 0 && lo <= end {
			end = hi
			continue
		}
		if start >= 0 {
			hunks = append(hunks, makeHunk(script, start, end))
		}
		start, end = lo, hi
	}
	if start >= 0 {
		hunks = append(hunks, makeHunk(script, start, end))
	}
	return hunks
}

func makeHunk(script []Line, start, end int) Hunk {
	// Line numbers before the hunk, counting both sides.
	oldBefore, newBefore := 0, 0
	for _, line := range script[:start] {
		if line.Type != Addition {
			oldBefore++
		}
		if line.Type != Deletion {
			newBefore++
		}
	}

	h := Hunk{
		OldStart: oldBefore + 1,
		NewStart: newBefore + 1,
		Lines:    append([]Line(nil), script[start:end]...),
	}
	for _, line := range h.Lines {
		if line.Type != Addition {
			h.OldLines++
		}
		if line.Type != Deletion {
			h.NewLines++
		}
	}
	if h.OldLines == 0 {
		h.OldStart--
	}
	if h.NewLines == 0 {
		h.NewStart--
	}
	return h
}

// Format returns a string representation of the diff
func (r *DiffResult) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+ ")
			case Deletion:
				buf.WriteString("- ")
			case Context:
				buf.WriteString("  ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
