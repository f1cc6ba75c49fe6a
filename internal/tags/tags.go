// Package tags merges frontmatter tags, inline hashtags, and
// content-derived auto-tags into deduplicated sets.
package tags

import (
	"regexp"
	"strings"
)

// noiseTags are never allowed into a detected or merged tag set.
var noiseTags = map[string]struct{}{
	"clippings": {},
}

// keywordTags maps technology keywords found in body text to tag names.
var keywordTags = map[string]string{
	"kubernetes": "kubernetes",
	"docker":     "docker",
	"terraform":  "terraform",
	"postgresql": "postgresql",
	"sqlite":     "sqlite",
	"redis":      "redis",
	"golang":     "go",
	"javascript": "javascript",
	"typescript": "typescript",
	"python":     "python",
	"react":      "react",
	"linux":      "linux",
	"graphql":    "graphql",
	"grpc":       "grpc",
	"machine learning": "machine-learning",
}

var (
	pyImportRe  = regexp.MustCompile(`(?m)^\s*(?:from\s+\w[\w.]*\s+import|import\s+\w)`)
	goImportRe  = regexp.MustCompile(`(?m)^\s*import\s+(?:\(|"\w)`)
	codeFenceRe = regexp.MustCompile("(?m)^```([A-Za-z][A-Za-z0-9+#-]*)")
)

// fenceLangTags maps fenced code-block language markers to tag names.
var fenceLangTags = map[string]string{
	"go":         "go",
	"golang":     "go",
	"python":     "python",
	"py":         "python",
	"js":         "javascript",
	"javascript": "javascript",
	"ts":         "typescript",
	"typescript": "typescript",
	"sql":        "sql",
	"bash":       "shell",
	"sh":         "shell",
	"shell":      "shell",
	"yaml":       "yaml",
	"json":       "json",
	"rust":       "rust",
	"c":          "c",
	"cpp":        "cpp",
	"java":       "java",
}

// FromFrontmatter reads the frontmatter "tags" field, accepting either a
// YAML list or a comma-separated string.
func FromFrontmatter(fm map[string]any) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}
	var out []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// AutoDetect scans clean body text for technology keywords, import
// statements, and fenced code-block language markers.
func AutoDetect(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}

	for keyword, tag := range keywordTags {
		if strings.Contains(lower, keyword) {
			add(tag)
		}
	}
	if pyImportRe.MatchString(content) {
		add("python")
	}
	if goImportRe.MatchString(content) {
		add("go")
	}
	for _, m := range codeFenceRe.FindAllStringSubmatch(content, -1) {
		if tag, ok := fenceLangTags[strings.ToLower(m[1])]; ok {
			add(tag)
		}
	}
	return out
}

// ExtractAll unions frontmatter tags, inline hashtags, and auto-detected
// tags, deduplicated case-insensitively with noise tags filtered out.
func ExtractAll(fm map[string]any, hashtags []string, content string) []string {
	return Merge(nil, concat(FromFrontmatter(fm), hashtags, AutoDetect(content)))
}

// Merge deduplicates existing and detected tags case-insensitively. On a
// collision the originally-cased existing tag wins. Noise tags are
// filtered from the result.
func Merge(existing, detected []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range append(append([]string{}, existing...), detected...) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, noise := noiseTags[key]; noise {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Reconcile produces the final tag set for a database update: the
// detected set, but keeping the original casing of any existing tag that
// matches case-insensitively.
func Reconcile(existing, detected []string) []string {
	cased := make(map[string]string, len(existing))
	for _, t := range existing {
		cased[strings.ToLower(t)] = t
	}
	merged := Merge(nil, detected)
	for i, t := range merged {
		if orig, ok := cased[strings.ToLower(t)]; ok {
			merged[i] = orig
		}
	}
	return merged
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
