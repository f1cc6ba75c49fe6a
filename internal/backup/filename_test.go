package backup

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/models"
)

func TestParseFilename_DateTimePattern(t *testing.T) {
	p, err := ParseFilename("20240115_Meeting_143000.md", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 15, 14, 30, 0, 0, time.Local)
	if !p.Date.Equal(want) {
		t.Errorf("date = %v, want %v", p.Date, want)
	}
	if p.TitlePart != "Meeting" {
		t.Errorf("title = %q, want %q", p.TitlePart, "Meeting")
	}
	if p.TimePart != "143000" {
		t.Errorf("time part = %q, want %q", p.TimePart, "143000")
	}
}

func TestParseFilename_DatePattern(t *testing.T) {
	p, err := ParseFilename("20240115_Notes.md", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)
	if !p.Date.Equal(want) {
		t.Errorf("date = %v, want %v", p.Date, want)
	}
	if p.TitlePart != "Notes" {
		t.Errorf("title = %q, want %q", p.TitlePart, "Notes")
	}
}

func TestParseFilename_HyphenatedDatePattern(t *testing.T) {
	p, err := ParseFilename("2024-01-15_Notes.md", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)
	if !p.Date.Equal(want) {
		t.Errorf("date = %v, want %v", p.Date, want)
	}
}

func TestParseFilename_GenericFallback(t *testing.T) {
	mtime := time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local)
	p, err := ParseFilename("random notes.md", mtime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TitlePart != "random notes" {
		t.Errorf("title = %q, want %q", p.TitlePart, "random notes")
	}
	if !p.Date.Equal(mtime) {
		t.Errorf("date = %v, want mtime %v", p.Date, mtime)
	}
}

func TestParseFilename_FallbackNeedsModTime(t *testing.T) {
	if _, err := ParseFilename("random notes.md", time.Time{}); err == nil {
		t.Fatal("expected error without mtime")
	}
}

func TestParseFilename_NonMarkdown(t *testing.T) {
	if _, err := ParseFilename("20240115_Notes.txt", time.Now()); err == nil {
		t.Fatal("expected error for non-.md extension")
	}
}

func TestParseFilename_InvalidDateFallsThrough(t *testing.T) {
	// Shape matches pattern 2 but the date is impossible; the generic
	// fallback should still parse it given an mtime.
	mtime := time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local)
	p, err := ParseFilename("20241399_Bad.md", mtime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Date.Equal(mtime) {
		t.Errorf("date = %v, want mtime %v", p.Date, mtime)
	}
}

func TestGenerateFilename_RoundTrips(t *testing.T) {
	doc := &models.Document{
		ID:        7,
		Title:     "Project Plan: Q1 / Q2",
		Content:   "Phase one complete.",
		CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local),
	}
	name := GenerateFilename(doc)
	if !strings.HasPrefix(name, "20240301_") {
		t.Errorf("name = %q, want 20240301_ prefix", name)
	}
	p, err := ParseFilename(name, time.Time{})
	if err != nil {
		t.Fatalf("generated name must parse: %v", err)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	if !p.Date.Equal(want) {
		t.Errorf("date = %v, want %v", p.Date, want)
	}
}

func TestGenerateFilename_DistinctForSameTitle(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	a := GenerateFilename(&models.Document{Title: "Plan", Content: "alpha", CreatedAt: created})
	b := GenerateFilename(&models.Document{Title: "Plan", Content: "beta", CreatedAt: created})
	if a == b {
		t.Errorf("same-day same-title documents collided: %q", a)
	}
}

func TestGenerateFilename_TruncatesLongTitles(t *testing.T) {
	doc := &models.Document{
		Title:     strings.Repeat("VeryLongTitle", 20),
		Content:   "body",
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
	}
	name := GenerateFilename(doc)
	if len(name) > len("20240102_")+maxFilenameTitleLen+len("_deadbeef.md") {
		t.Errorf("name too long: %d chars (%q)", len(name), name)
	}
}
