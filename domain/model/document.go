package model

// DocumentKind identifies the variant held by a Document.
type DocumentKind int

const (
	// DocumentText is a whole decoded text.
	DocumentText DocumentKind = iota
	// DocumentLines is text split into lines.
	DocumentLines
	// DocumentRows is lines split into fields.
	DocumentRows
)

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	switch k {
	case DocumentText:
		return "text"
	case DocumentLines:
		return "lines"
	case DocumentRows:
		return "rows"
	default:
		return "unknown"
	}
}

// Document is the decoded content of one archive member.
// Exactly one of text, lines or rows is meaningful, selected by kind.
// A Document is immutable once created; accessors return shared slices
// that callers must not modify.
type Document struct {
	kind  DocumentKind
	text  string
	lines []string
	rows  [][]string
}

// NewTextDocument create new text Document.
func NewTextDocument(text string) Document {
	return Document{kind: DocumentText, text: text}
}

// NewLinesDocument create new lines Document.
func NewLinesDocument(lines []string) Document {
	return Document{kind: DocumentLines, lines: append([]string(nil), lines...)}
}

// NewRowsDocument create new rows Document.
func NewRowsDocument(rows [][]string) Document {
	copied := make([][]string, len(rows))
	for i, r := range rows {
		copied[i] = append([]string(nil), r...)
	}
	return Document{kind: DocumentRows, rows: copied}
}

// Kind return document kind.
func (d Document) Kind() DocumentKind {
	return d.kind
}

// Text returns the text and whether the document holds text.
func (d Document) Text() (string, bool) {
	return d.text, d.kind == DocumentText
}

// Lines returns the lines and whether the document holds lines.
func (d Document) Lines() ([]string, bool) {
	return d.lines, d.kind == DocumentLines
}

// Rows returns the rows and whether the document holds rows.
func (d Document) Rows() ([][]string, bool) {
	return d.rows, d.kind == DocumentRows
}

// Len returns the number of lines or rows; a text document has length 1.
func (d Document) Len() int {
	switch d.kind {
	case DocumentLines:
		return len(d.lines)
	case DocumentRows:
		return len(d.rows)
	default:
		return 1
	}
}
