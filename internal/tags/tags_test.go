package tags

import (
	"slices"
	"strings"
	"testing"
)

func TestFromFrontmatter_List(t *testing.T) {
	fm := map[string]any{"tags": []any{"go", " infra ", "", 42}}
	got := FromFrontmatter(fm)
	want := []string{"go", "infra"}
	if !slices.Equal(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestFromFrontmatter_CommaString(t *testing.T) {
	fm := map[string]any{"tags": "go, infra,,docs"}
	got := FromFrontmatter(fm)
	want := []string{"go", "infra", "docs"}
	if !slices.Equal(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestFromFrontmatter_Missing(t *testing.T) {
	if got := FromFrontmatter(nil); got != nil {
		t.Errorf("tags = %v, want nil", got)
	}
	if got := FromFrontmatter(map[string]any{"title": "x"}); got != nil {
		t.Errorf("tags = %v, want nil", got)
	}
}

func TestAutoDetect_Keywords(t *testing.T) {
	got := AutoDetect("Deploying to Kubernetes with Docker images.")
	if !slices.Contains(got, "kubernetes") || !slices.Contains(got, "docker") {
		t.Errorf("tags = %v, want kubernetes and docker", got)
	}
}

func TestAutoDetect_PythonImport(t *testing.T) {
	got := AutoDetect("notes\n\nfrom collections import defaultdict\n")
	if !slices.Contains(got, "python") {
		t.Errorf("tags = %v, want python", got)
	}
}

func TestAutoDetect_CodeFence(t *testing.T) {
	got := AutoDetect("```go\npackage main\n```\n\n```sql\nSELECT 1;\n```\n")
	if !slices.Contains(got, "go") || !slices.Contains(got, "sql") {
		t.Errorf("tags = %v, want go and sql", got)
	}
}

func TestMerge_CaseInsensitiveDedup(t *testing.T) {
	got := Merge([]string{"Go", "infra"}, []string{"go", "GO", "Docs"})
	want := []string{"Go", "infra", "Docs"}
	if !slices.Equal(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}
}

func TestMerge_NoiseFiltered(t *testing.T) {
	for _, variant := range []string{"clippings", "Clippings", "CLIPPINGS"} {
		got := Merge([]string{variant}, []string{"keep", variant})
		for _, tag := range got {
			if strings.EqualFold(tag, "clippings") {
				t.Errorf("noise tag %q survived merge: %v", variant, got)
			}
		}
		if !slices.Contains(got, "keep") {
			t.Errorf("merge dropped legitimate tag: %v", got)
		}
	}
}

func TestReconcile_ExistingCasingWins(t *testing.T) {
	got := Reconcile([]string{"GraphQL", "stale"}, []string{"graphql", "new"})
	want := []string{"GraphQL", "new"}
	if !slices.Equal(got, want) {
		t.Errorf("reconciled = %v, want %v", got, want)
	}
}

func TestExtractAll_Union(t *testing.T) {
	fm := map[string]any{"tags": []any{"Project", "clippings"}}
	got := ExtractAll(fm, []string{"roadmap", "project"}, "Uses PostgreSQL under the hood.")
	want := []string{"Project", "roadmap", "postgresql"}
	if !slices.Equal(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}
