// Package notescodec maps a note collection to and from the flat text
// format used for export/import. The format is deliberately simple so that
// exported files can be edited by hand: blocks separated by a hyphen rule,
// with Title:/Content: labels inside each block.
//
// The split is purely textual. A note whose content itself contains a line
// of 5+ hyphens will be split into two notes on re-import; that is a known
// limitation of the format, kept in preference to an escaping scheme that
// would hurt hand-editability.
package notescodec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mrshanahan/notes-local/pkg/notes"
)

var (
	SEPARATOR_PATTERN  = regexp.MustCompile(`-{5,}\s*\n?`)
	NOTE_LABEL_PATTERN = regexp.MustCompile(`(?i)^Note\s*\d+\s*`)
	TITLE_PATTERN      = regexp.MustCompile(`(?i)Title:[ \t]*(.*)`)
	CONTENT_PATTERN    = regexp.MustCompile(`(?is)Content:\s*(.*)`)
)

// Separator is the rule emitted between blocks on export. Import accepts
// any run of 5+ hyphens so hand-edited files survive.
const Separator = "-------------------------"

// ExportFilename is the canonical name for exported files.
const ExportFilename = "notes.txt"

// Serialize renders the collection in order, one block per note. The
// leading "Note <n>" label is informational only and is not consulted on
// import.
func Serialize(collection []*notes.Note) string {
	var sb strings.Builder
	for i, n := range collection {
		fmt.Fprintf(&sb, "Note %d\n", i+1)
		fmt.Fprintf(&sb, "Title: %s\n", n.Title)
		fmt.Fprintf(&sb, "Content:\n%s\n", n.Content)
		sb.WriteString(Separator + "\n\n")
	}
	return sb.String()
}

// Parse splits text on separator runs and turns each non-blank block into a
// note draft. Parsing never fails: missing labels default to empty fields
// and whitespace-only blocks are dropped. Every draft gets a fresh id and a
// current timestamp; the flat format carries neither.
func Parse(text string) []*notes.Note {
	blocks := SEPARATOR_PATTERN.Split(text, -1)

	drafts := []*notes.Note{}
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		block = strings.TrimSpace(NOTE_LABEL_PATTERN.ReplaceAllString(block, ""))

		var title, content string
		if matches := TITLE_PATTERN.FindStringSubmatch(block); matches != nil {
			title = strings.TrimSpace(matches[1])
		}
		if matches := CONTENT_PATTERN.FindStringSubmatch(block); matches != nil {
			content = strings.TrimSpace(matches[1])
		}

		drafts = append(drafts, notes.NewNote(title, content))
	}
	return drafts
}
