package backup

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/raido/internal/tags"
)

// FileInfo is the ephemeral per-scan view of one backup file, ready for
// matching and comparison against the document store.
type FileInfo struct {
	FilePath      string
	FileModTime   time.Time
	Header        *Header // nil when the file carries no backup header
	Parsed        *ParsedContent
	Content       string // body with the backup header stripped
	Title         string
	Author        string
	OriginalDocID int64 // 0 when the header carries no id
	IsPublic      bool
	Tags          []string
}

// LoadFileInfo builds a FileInfo from raw file bytes. The filename is
// parsed for a creation timestamp, the writer's own header block is
// stripped, and frontmatter/wikilinks/hashtags are extracted from the
// remaining body.
func LoadFileInfo(path string, data []byte, modTime time.Time) (*FileInfo, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("backup: %s: not valid UTF-8", path)
	}

	header, body := StripHeader(string(data))
	parsed := ParseContent(body)

	info := &FileInfo{
		FilePath:    path,
		FileModTime: modTime,
		Header:      header,
		Parsed:      parsed,
		Content:     parsed.CleanContent,
	}

	var hashtags []string
	for _, h := range parsed.Hashtags {
		hashtags = append(hashtags, h.Tag)
	}

	if header != nil {
		info.Title = header.Title
		info.Author = header.Author
		info.OriginalDocID = header.DocumentID
		info.IsPublic = header.Public
		info.Tags = tags.Merge(header.Tags, append(hashtags, tags.FromFrontmatter(parsed.Frontmatter)...))
	} else {
		info.Tags = tags.Merge(nil, append(tags.FromFrontmatter(parsed.Frontmatter), hashtags...))
	}

	if info.Title == "" {
		info.Title = frontmatterString(parsed.Frontmatter, "title")
	}
	if info.Title == "" {
		info.Title = "Untitled"
	}
	if info.Author == "" {
		info.Author = normalizeAuthor(frontmatterValue(parsed.Frontmatter, "author"))
	}
	return info, nil
}

// InternalLinkTargets returns the wikilink targets in order of appearance.
func (i *FileInfo) InternalLinkTargets() []string {
	out := make([]string, 0, len(i.Parsed.InternalLinks))
	for _, l := range i.Parsed.InternalLinks {
		out = append(out, l.Target)
	}
	return out
}

// HashtagValues returns the deduplicated hashtag values.
func (i *FileInfo) HashtagValues() []string {
	out := make([]string, 0, len(i.Parsed.Hashtags))
	for _, h := range i.Parsed.Hashtags {
		out = append(out, h.Tag)
	}
	return out
}

func frontmatterValue(fm map[string]any, key string) any {
	if fm == nil {
		return nil
	}
	return fm[key]
}

func frontmatterString(fm map[string]any, key string) string {
	if s, ok := frontmatterValue(fm, key).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// normalizeAuthor handles the author forms Obsidian exports produce:
// plain strings, single-element lists, [[wikilinked]] names, and quoted
// names.
func normalizeAuthor(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []any:
		if len(t) > 0 {
			if first, ok := t[0].(string); ok {
				s = first
			}
		}
	default:
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[[")
	s = strings.TrimSuffix(s, "]]")
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
