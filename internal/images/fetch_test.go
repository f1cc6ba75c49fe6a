package images

import (
	"context"
	"strings"
	"testing"
)

func TestCheckPublicHost_BlockedAddresses(t *testing.T) {
	cases := []string{
		"127.0.0.1",
		"10.0.0.5",
		"172.16.3.4",
		"192.168.1.1",
		"169.254.169.254",
		"0.0.0.0",
		"::1",
		"fe80::1",
		"metadata.google.internal",
	}
	for _, host := range cases {
		if err := CheckPublicHost(host); err == nil {
			t.Errorf("CheckPublicHost(%q) = nil, want blocked", host)
		}
	}
}

func TestCheckPublicHost_PublicAddress(t *testing.T) {
	if err := CheckPublicHost("8.8.8.8"); err != nil {
		t.Errorf("CheckPublicHost(8.8.8.8) = %v, want nil", err)
	}
}

func TestLocalName_FromAlt(t *testing.T) {
	got := localName("Release Chart (v2)", "https://example.com/a.png", ".png")
	if got != "Release_Chart__v2.png" {
		t.Errorf("name = %q", got)
	}
}

func TestLocalName_FallsBackToHash(t *testing.T) {
	got := localName("", "https://example.com/a.png", ".png")
	if len(got) != 16+len(".png") || !strings.HasSuffix(got, ".png") {
		t.Errorf("name = %q, want 16-char hash with extension", got)
	}
	// Same URL always yields the same name.
	if again := localName("", "https://example.com/a.png", ".png"); again != got {
		t.Errorf("name unstable: %q vs %q", got, again)
	}
	// Overlong alt text also falls back.
	long := strings.Repeat("x", 100)
	if got := localName(long, "https://example.com/b.png", ".png"); len(got) != 16+len(".png") {
		t.Errorf("overlong alt name = %q", got)
	}
}

func TestMaterialize_EmptyDestDirIsNoop(t *testing.T) {
	f := NewFetcher(nil)
	content := "![chart](https://example.com/chart.png)"
	if got := f.Materialize(context.Background(), content, ""); got != content {
		t.Errorf("content changed: %q", got)
	}
}

func TestMaterialize_LocalReferencesUntouched(t *testing.T) {
	f := NewFetcher(nil)
	content := "![chart](images/chart.png) and [![icon](./icon.png)](docs/page.md)"
	got := f.Materialize(context.Background(), content, t.TempDir())
	if got != content {
		t.Errorf("local references rewritten: %q", got)
	}
}

func TestMaterialize_BlockedHostLeavesReference(t *testing.T) {
	f := NewFetcher(nil)
	content := "before ![secret](http://169.254.169.254/latest/meta) after"
	got := f.Materialize(context.Background(), content, t.TempDir())
	if got != content {
		t.Errorf("blocked fetch rewrote reference: %q", got)
	}
}

func TestMaterialize_LinkedImageBlockedHostIntact(t *testing.T) {
	f := NewFetcher(nil)
	content := "[![alt](http://127.0.0.1/x.png)](https://example.com/page)"
	got := f.Materialize(context.Background(), content, t.TempDir())
	if got != content {
		t.Errorf("blocked linked image rewritten: %q", got)
	}
}
