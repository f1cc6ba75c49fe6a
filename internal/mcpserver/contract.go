package mcpserver

// BackupFormatContract describes the canonical backup file format that
// every file in the backup directory follows.
const BackupFormatContract = `# Raido Backup Format Contract

Every backup file written by Raido MUST follow this structure.

## Header block

` + "```" + `markdown
---
Document Backup
Generated: 2024-01-15T14:30:00Z     # volatile; ignored by content comparison
Document ID: 7                       # store id; strongest match signal
Title: Project Plan
Author: Ada                          # "Unknown" when the store has none
Created: 2024-01-10T09:00:00Z
Updated: 2024-01-15T14:29:12Z
Public: false
Tags: planning, q1                   # optional, comma-joined
Frontmatter: {"source":"web"}       # optional, JSON
Internal Links: other-doc, ideas     # optional
Hashtags: roadmap                    # optional
---

Document body in standard Markdown follows after one blank line.
` + "```" + `

## Rules

1. The ` + "`" + `---` + "`" + ` fences delimit the header; the first line inside is the
   literal marker ` + "`" + `Document Backup` + "`" + `.
2. The ` + "`" + `Generated` + "`" + ` line is excluded from all content-equality checks, so
   re-serialising unchanged content never registers as drift.
3. An empty body is written as ` + "`" + `*No content available*` + "`" + `.
4. The body may carry its own YAML frontmatter, ` + "`" + `[[wikilinks]]` + "`" + `, and
   inline ` + "`" + `#hashtags` + "`" + `; all are extracted on import.

## Filename patterns (parse priority order)

1. ` + "`" + `YYYYMMDD_<title>_HHMMSS.md` + "`" + ` — full timestamp embedded.
2. ` + "`" + `YYYYMMDD_<title>.md` + "`" + ` — date only, time defaults to midnight.
3. ` + "`" + `YYYY-MM-DD_<title>.md` + "`" + ` — hyphenated date, midnight.
4. Any other ` + "`" + `.md` + "`" + ` name — title is the stem, timestamp is the file mtime.

Raido writes pattern 2 with an 8-hex content digest appended to the title
so same-day documents with identically truncated titles never collide.
`
