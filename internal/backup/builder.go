package backup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/raido/internal/models"
)

const (
	headerDelim  = "---"
	headerMarker = "Document Backup"
)

// Render converts a document into the canonical backup text format. The
// disk-write variant (includeGenerated=true) carries a "Generated" line
// for human auditability; the comparison variant omits it so re-rendering
// unchanged content is byte-for-byte stable for equality checks.
func Render(doc *models.Document, includeGenerated bool) string {
	var b strings.Builder

	b.WriteString(headerDelim + "\n")
	b.WriteString(headerMarker + "\n")
	if includeGenerated {
		fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Document ID: %d\n", doc.ID)
	fmt.Fprintf(&b, "Title: %s\n", doc.Title)

	author := doc.Author
	if author == "" {
		author = "Unknown"
	}
	fmt.Fprintf(&b, "Author: %s\n", author)
	fmt.Fprintf(&b, "Created: %s\n", doc.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Updated: %s\n", doc.EffectiveUpdatedAt().Format(time.RFC3339))
	fmt.Fprintf(&b, "Public: %t\n", doc.IsPublic)

	if len(doc.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(doc.Tags, ", "))
	}
	if meta := doc.Metadata; meta != nil {
		if len(meta.Frontmatter) > 0 {
			if raw, err := json.Marshal(meta.Frontmatter); err == nil {
				fmt.Fprintf(&b, "Frontmatter: %s\n", raw)
			}
		}
		if len(meta.InternalLinks) > 0 {
			fmt.Fprintf(&b, "Internal Links: %s\n", strings.Join(meta.InternalLinks, ", "))
		}
		if len(meta.Hashtags) > 0 {
			fmt.Fprintf(&b, "Hashtags: %s\n", strings.Join(meta.Hashtags, ", "))
		}
	}

	b.WriteString(headerDelim + "\n\n")

	if strings.TrimSpace(doc.Content) == "" {
		b.WriteString("*No content available*\n")
	} else {
		b.WriteString(doc.Content)
		if !strings.HasSuffix(doc.Content, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}
