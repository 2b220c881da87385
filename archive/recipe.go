package archive

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// Step is one transformation of a decode recipe.
type Step string

// Recipe steps.
const (
	// StepASCII decodes bytes as 7-bit ASCII.
	StepASCII Step = "ascii"
	// StepUTF8 decodes bytes as UTF-8.
	StepUTF8 Step = "utf-8"
	// StepUTF16 decodes bytes as UTF-16, honoring a BOM and defaulting to little endian.
	StepUTF16 Step = "utf-16"
	// StepSplit splits text into lines on '\n'.
	StepSplit Step = "split"
	// StepStrip trims surrounding whitespace from each line.
	StepStrip Step = "strip"
	// StepCSV splits each line into fields on ';'.
	StepCSV Step = "csv"
	// StepNoEmptyLines drops empty lines or rows.
	StepNoEmptyLines Step = "noemptylines"
)

// ErrStep is returned when a recipe step cannot be applied to its input.
var ErrStep = errors.New("decode step failed")

// Recipe is an ordered list of steps turning member bytes into a Document.
type Recipe []Step

// String returns the steps joined by commas.
func (r Recipe) String() string {
	parts := make([]string, len(r))
	for i, s := range r {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

// stage is the intermediate value threaded through recipe steps.
type stage struct {
	kind  stageKind
	raw   []byte
	text  string
	lines []string
	rows  [][]string
}

type stageKind int

const (
	stageBytes stageKind = iota
	stageText
	stageLines
	stageRows
)

func (k stageKind) String() string {
	switch k {
	case stageBytes:
		return "bytes"
	case stageText:
		return "text"
	case stageLines:
		return "lines"
	default:
		return "rows"
	}
}

// accepts reports which stages a step can consume.
func (s Step) accepts(k stageKind) bool {
	switch s {
	case StepASCII, StepUTF8, StepUTF16:
		return k == stageBytes
	case StepSplit:
		return k == stageText
	case StepStrip, StepCSV:
		return k == stageLines
	case StepNoEmptyLines:
		return k == stageLines || k == stageRows
	default:
		return false
	}
}

// produces returns the stage a step leaves behind.
func (s Step) produces(k stageKind) stageKind {
	switch s {
	case StepASCII, StepUTF8, StepUTF16:
		return stageText
	case StepSplit, StepStrip:
		return stageLines
	case StepCSV:
		return stageRows
	default:
		return k
	}
}

// Validate checks that every step receives the input it expects and that the
// recipe ends in text, lines or rows.
func (r Recipe) Validate() error {
	k := stageBytes
	for i, s := range r {
		if !s.accepts(k) {
			return fmt.Errorf("%w: step %d (%s) cannot consume %s", ErrInvalidRecipe, i, s, k)
		}
		k = s.produces(k)
	}
	if k == stageBytes {
		return fmt.Errorf("%w: recipe %q never decodes bytes", ErrInvalidRecipe, r.String())
	}
	return nil
}

// Apply runs the recipe over member bytes. Steps run strictly in order and
// any failing step fails the whole recipe.
func (r Recipe) Apply(data []byte) (model.Document, error) {
	st := stage{kind: stageBytes, raw: data}
	for _, s := range r {
		if !s.accepts(st.kind) {
			return model.Document{}, fmt.Errorf("%w: %s cannot consume %s", ErrStep, s, st.kind)
		}
		var err error
		if st, err = s.apply(st); err != nil {
			return model.Document{}, fmt.Errorf("%w: %s: %w", ErrStep, s, err)
		}
	}

	switch st.kind {
	case stageText:
		return model.NewTextDocument(st.text), nil
	case stageLines:
		return model.NewLinesDocument(st.lines), nil
	case stageRows:
		return model.NewRowsDocument(st.rows), nil
	default:
		return model.Document{}, fmt.Errorf("%w: recipe %q left undecoded bytes", ErrStep, r.String())
	}
}

func (s Step) apply(st stage) (stage, error) {
	switch s {
	case StepASCII:
		for i, b := range st.raw {
			if b >= utf8.RuneSelf {
				return st, fmt.Errorf("non-ascii byte 0x%02x at offset %d", b, i)
			}
		}
		return stage{kind: stageText, text: string(st.raw)}, nil

	case StepUTF8:
		if !utf8.Valid(st.raw) {
			return st, errors.New("invalid utf-8 sequence")
		}
		return stage{kind: stageText, text: string(st.raw)}, nil

	case StepUTF16:
		text, err := decodeUTF16(st.raw)
		if err != nil {
			return st, err
		}
		return stage{kind: stageText, text: text}, nil

	case StepSplit:
		return stage{kind: stageLines, lines: strings.Split(st.text, "\n")}, nil

	case StepStrip:
		lines := make([]string, len(st.lines))
		for i, l := range st.lines {
			lines[i] = strings.TrimSpace(l)
		}
		return stage{kind: stageLines, lines: lines}, nil

	case StepCSV:
		rows := make([][]string, len(st.lines))
		for i, l := range st.lines {
			rows[i] = strings.Split(l, ";")
		}
		return stage{kind: stageRows, rows: rows}, nil

	case StepNoEmptyLines:
		if st.kind == stageRows {
			rows := make([][]string, 0, len(st.rows))
			for _, r := range st.rows {
				if len(r) > 0 {
					rows = append(rows, r)
				}
			}
			return stage{kind: stageRows, rows: rows}, nil
		}
		lines := make([]string, 0, len(st.lines))
		for _, l := range st.lines {
			if l != "" {
				lines = append(lines, l)
			}
		}
		return stage{kind: stageLines, lines: lines}, nil

	default:
		return st, fmt.Errorf("unknown step %q", string(s))
	}
}

func decodeUTF16(raw []byte) (string, error) {
	if len(raw)%2 != 0 {
		return "", fmt.Errorf("odd utf-16 byte length %d", len(raw))
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	out, err := decoder.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("invalid utf-16: %w", err)
	}
	return string(out), nil
}
