package backup

import (
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Frontmatter scanning is bounded so adversarial inputs cannot make the
// parser walk an arbitrarily large prefix looking for a closing delimiter.
const maxFrontmatterScan = 64 << 10

// Nested frontmatter values are normalised to bounded depth.
const maxNormalizeDepth = 8

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]+?))?\]\]`)
	hashtagRe  = regexp.MustCompile(`(^|\s)#([\w가-힣]+)`)
)

// InternalLink is one [[target]] or [[target|display]] occurrence.
type InternalLink struct {
	Target  string `json:"target"`
	Display string `json:"display"`
	Offset  int    `json:"offset"`
	Raw     string `json:"raw"`
}

// Hashtag is one inline #tag occurrence.
type Hashtag struct {
	Tag    string `json:"tag"`
	Offset int    `json:"offset"`
	Raw    string `json:"raw"`
}

// ParsedContent holds the output of parsing backup Markdown content.
type ParsedContent struct {
	Frontmatter   map[string]any
	InternalLinks []InternalLink
	Hashtags      []Hashtag
	CleanContent  string
}

// ParseContent splits Markdown text into frontmatter, body, wikilinks,
// and hashtags. Malformed frontmatter degrades to an empty map; the body
// is still parsed.
func ParseContent(content string) *ParsedContent {
	fm, body := splitFrontmatter(content)
	return &ParsedContent{
		Frontmatter:   fm,
		InternalLinks: extractLinks(body),
		Hashtags:      extractHashtags(body),
		CleanContent:  body,
	}
}

// splitFrontmatter separates a leading YAML block (between --- delimiters)
// from the Markdown body. If no frontmatter is found, or the YAML is
// invalid, the entire content is body.
func splitFrontmatter(content string) (map[string]any, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\n\r")

	if !strings.HasPrefix(trimmed, delim) {
		return nil, content
	}

	rest := trimmed[len(delim):]
	window := rest
	if len(window) > maxFrontmatterScan {
		window = window[:maxFrontmatterScan]
	}
	idx := strings.Index(window, "\n"+delim)
	if idx < 0 {
		return nil, content
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(afterDelim, "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return nil, content
	}
	normalized, ok := normalizeValue(fm, 0).(map[string]any)
	if !ok {
		normalized = fm
	}
	return normalized, body
}

// normalizeValue converts date and datetime values to ISO-8601 strings,
// recursively and to bounded depth, so frontmatter is safely serializable.
func normalizeValue(v any, depth int) any {
	if depth > maxNormalizeDepth {
		return v
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val, depth+1)
		}
		return out
	default:
		return v
	}
}

// extractLinks returns every wikilink occurrence with target, display
// text, character offset, and the raw matched text.
func extractLinks(body string) []InternalLink {
	idxs := wikilinkRe.FindAllStringSubmatchIndex(body, -1)
	var out []InternalLink
	for _, m := range idxs {
		raw := body[m[0]:m[1]]
		target := strings.TrimSpace(body[m[2]:m[3]])
		if target == "" {
			continue
		}
		display := target
		if m[4] >= 0 {
			if d := strings.TrimSpace(body[m[4]:m[5]]); d != "" {
				display = d
			}
		}
		out = append(out, InternalLink{
			Target:  target,
			Display: display,
			Offset:  m[0],
			Raw:     raw,
		})
	}
	return out
}

// extractHashtags returns inline #tags at word boundaries, deduplicated by
// lower-cased value. The first occurrence's position and raw text win.
func extractHashtags(body string) []Hashtag {
	idxs := hashtagRe.FindAllStringSubmatchIndex(body, -1)
	seen := make(map[string]struct{}, len(idxs))
	var out []Hashtag
	for _, m := range idxs {
		tag := body[m[4]:m[5]]
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Hashtag{
			Tag:    tag,
			Offset: m[4] - 1, // position of the '#'
			Raw:    "#" + tag,
		})
	}
	return out
}
