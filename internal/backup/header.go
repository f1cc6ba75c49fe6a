package backup

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var generatedLineRe = regexp.MustCompile(`(?m)^Generated: [^\n]*\n?`)

// Header is the metadata block the backup writer embeds at the top of
// every file.
type Header struct {
	DocumentID int64
	Title      string
	Author     string
	Created    time.Time
	Updated    time.Time
	Public     bool
	HasPublic  bool
	Tags       []string
}

// StripHeader recognises the writer's own header block (a --- fenced
// block whose first line is the "Document Backup" marker) and splits it
// from the body. Content without such a header returns a nil Header and
// the input unchanged.
func StripHeader(content string) (*Header, string) {
	trimmed := strings.TrimLeft(content, "\n\r")
	if !strings.HasPrefix(trimmed, headerDelim+"\n") {
		return nil, content
	}
	rest := trimmed[len(headerDelim)+1:]
	idx := strings.Index(rest, "\n"+headerDelim)
	if idx < 0 {
		return nil, content
	}
	block := rest[:idx]
	lines := strings.Split(block, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != headerMarker {
		return nil, content
	}

	h := &Header{}
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Document ID":
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				h.DocumentID = id
			}
		case "Title":
			h.Title = value
		case "Author":
			if value != "Unknown" {
				h.Author = value
			}
		case "Created":
			h.Created = parseHeaderTime(value)
		case "Updated":
			h.Updated = parseHeaderTime(value)
		case "Public":
			if v, err := strconv.ParseBool(value); err == nil {
				h.Public = v
				h.HasPublic = true
			}
		case "Tags":
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					h.Tags = append(h.Tags, t)
				}
			}
		}
	}

	body := rest[idx+1+len(headerDelim):]
	return h, strings.TrimLeft(body, "\n\r")
}

// StripGeneratedLine removes the volatile "Generated:" header line so
// content equality never trips on the write timestamp.
func StripGeneratedLine(content string) string {
	return generatedLineRe.ReplaceAllString(content, "")
}

// parseHeaderTime accepts RFC 3339 plus the space-separated form produced
// by the earlier backup writer.
func parseHeaderTime(s string) time.Time {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts
	}
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local); err == nil {
		return ts
	}
	return time.Time{}
}
