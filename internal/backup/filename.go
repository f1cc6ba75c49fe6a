// Package backup implements the on-disk backup file format: filename
// conventions, the embedded metadata header, and frontmatter/wikilink/
// hashtag extraction from Markdown content.
package backup

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
)

// Filename patterns, tried in priority order. Pattern 4 (any other .md
// name) is handled separately because it needs the file's mtime.
var (
	dateTimeNameRe = regexp.MustCompile(`^(\d{8})_(.+)_(\d{6})\.md$`)
	dateNameRe     = regexp.MustCompile(`^(\d{8})_(.+)\.md$`)
	isoDateNameRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(.+)\.md$`)

	unsafeTitleRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Titles longer than this are truncated before going into a filename.
const maxFilenameTitleLen = 64

// ParsedFilename is the result of parsing a backup filename.
type ParsedFilename struct {
	Filename  string
	Date      time.Time
	TitlePart string // raw, not sanitized
	DatePart  string
	TimePart  string
}

// ParseFilename parses a backup filename into a creation timestamp and a
// raw title fragment. Only .md files are eligible. modTime is the file's
// on-disk modification time and is consumed only by the generic fallback
// pattern; a zero modTime disables that fallback.
func ParseFilename(name string, modTime time.Time) (*ParsedFilename, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".md") {
		return nil, fmt.Errorf("backup: not a markdown file: %s", name)
	}

	if m := dateTimeNameRe.FindStringSubmatch(name); m != nil {
		if ts, err := time.ParseInLocation("20060102 150405", m[1]+" "+m[3], time.Local); err == nil {
			return &ParsedFilename{Filename: name, Date: ts, TitlePart: m[2], DatePart: m[1], TimePart: m[3]}, nil
		}
	}
	if m := dateNameRe.FindStringSubmatch(name); m != nil {
		if ts, err := time.ParseInLocation("20060102", m[1], time.Local); err == nil {
			return &ParsedFilename{Filename: name, Date: ts, TitlePart: m[2], DatePart: m[1]}, nil
		}
	}
	if m := isoDateNameRe.FindStringSubmatch(name); m != nil {
		if ts, err := time.ParseInLocation("2006-01-02", m[1], time.Local); err == nil {
			return &ParsedFilename{Filename: name, Date: ts, TitlePart: m[2], DatePart: m[1]}, nil
		}
	}

	// Generic fallback: title is the stem, timestamp comes from the file
	// itself. This is the only pattern that depends on the file existing.
	if modTime.IsZero() {
		return nil, fmt.Errorf("backup: unparseable filename: %s", name)
	}
	return &ParsedFilename{
		Filename:  name,
		Date:      modTime,
		TitlePart: strings.TrimSuffix(name, ".md"),
	}, nil
}

// GenerateFilename builds a date-prefixed filename for a document backup:
// YYYYMMDD_<sanitized title>_<8-hex content digest>.md. The digest suffix
// keeps two same-day documents with identically truncated titles from
// targeting the same file.
func GenerateFilename(doc *models.Document) string {
	date := doc.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}
	title := sanitizeTitle(doc.Title)
	suffix := checksum.SumString(doc.Content)[:8]
	// An all-digit suffix could make the name parse as the date+time
	// pattern; force a letter in that case.
	if !strings.ContainsAny(suffix, "abcdef") {
		suffix = "a" + suffix[:7]
	}
	return fmt.Sprintf("%s_%s_%s.md", date.Format("20060102"), title, suffix)
}

func sanitizeTitle(title string) string {
	s := unsafeTitleRe.ReplaceAllString(title, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "Untitled"
	}
	if len(s) > maxFilenameTitleLen {
		s = s[:maxFilenameTitleLen]
		s = strings.TrimRight(s, "_")
	}
	return s
}
