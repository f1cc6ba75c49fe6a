// Package images materialises externally-hosted images referenced from
// backup content into a local directory, rewriting the references.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/starford/raido/internal/checksum"
)

const (
	maxImageSize = 10 << 20 // 10 MB
	fetchTimeout = 30 * time.Second
)

// Only raster image types are accepted; SVG is rejected because it can
// carry scripts.
var allowedContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	// [![alt](src)](href)
	linkedImageRe = regexp.MustCompile(`\[!\[([^\]]*)\]\(([^)\s]+)\)\]\(([^)\s]+)\)`)
	// ![alt](src)
	plainImageRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)

	safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Fetcher downloads remote images with request-forgery and size guards.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. A nil logger falls back to slog.Default.
func NewFetcher(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return CheckPublicHost(req.URL.Hostname())
			},
		},
		logger: logger,
	}
}

// Materialize scans content for linked and plain Markdown image forms and
// downloads every externally-hosted image into destDir, rewriting the
// reference to the local path. Fetch failures leave the original
// reference in place; they never fail the overall parse.
func (f *Fetcher) Materialize(ctx context.Context, content, destDir string) string {
	if destDir == "" {
		return content
	}
	// Linked images first so the plain pattern does not re-match their
	// inner form.
	content = linkedImageRe.ReplaceAllStringFunc(content, func(m string) string {
		parts := linkedImageRe.FindStringSubmatch(m)
		local, err := f.fetchOne(ctx, parts[1], parts[2], destDir)
		if err != nil {
			f.logger.Warn("image fetch failed", slog.String("src", parts[2]), slog.String("error", err.Error()))
			return m
		}
		return fmt.Sprintf("[![%s](%s)](%s)", parts[1], local, parts[3])
	})
	return plainImageRe.ReplaceAllStringFunc(content, func(m string) string {
		parts := plainImageRe.FindStringSubmatch(m)
		local, err := f.fetchOne(ctx, parts[1], parts[2], destDir)
		if err != nil {
			f.logger.Warn("image fetch failed", slog.String("src", parts[2]), slog.String("error", err.Error()))
			return m
		}
		return fmt.Sprintf("![%s](%s)", parts[1], local)
	})
}

// fetchOne downloads src into destDir and returns the local reference.
// Non-HTTP sources are returned unchanged.
func (f *Fetcher) fetchOne(ctx context.Context, alt, src, destDir string) (string, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return src, nil
	}
	parsed, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if err := CheckPublicHost(parsed.Hostname()); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	ct := strings.Split(resp.Header.Get("Content-Type"), ";")[0]
	ext, ok := allowedContentTypes[ct]
	if !ok {
		return "", fmt.Errorf("unsupported content type: %s", ct)
	}

	name := localName(alt, src, ext)
	target := filepath.Join(destDir, name)
	if _, statErr := os.Stat(target); statErr == nil {
		// Already downloaded.
		return name, nil
	}

	limited := io.LimitReader(resp.Body, maxImageSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("image too large: exceeds %d bytes", maxImageSize)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// localName derives a filename from the alt text when usable, otherwise
// from a hash of the URL so distinct sources never collide.
func localName(alt, src, ext string) string {
	base := safeNameRe.ReplaceAllString(strings.TrimSpace(alt), "_")
	base = strings.Trim(base, "._")
	if base == "" || len(base) > 80 {
		base = checksum.SumString(src)[:16]
	}
	return base + ext
}

// CheckPublicHost rejects hosts that resolve to private, loopback,
// link-local, or unspecified addresses, plus cloud metadata endpoints.
func CheckPublicHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ips := []net.IP{}
	if ip := net.ParseIP(host); ip != nil {
		ips = append(ips, ip)
	} else {
		resolved, err := net.LookupIP(host)
		if err != nil || len(resolved) == 0 {
			return fmt.Errorf("blocked host: cannot resolve %s", host)
		}
		ips = resolved
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("blocked host: non-public address %s", ip)
		}
	}
	return nil
}
