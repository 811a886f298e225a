package acquisition

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/fileutil"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sourcelink"
)

var contentTypeExtensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/x-msvideo":  ".avi",
	"audio/mpeg":       ".mp3",
	"audio/mp4":        ".m4a",
	"audio/wav":        ".wav",
	"audio/x-wav":      ".wav",
	"audio/ogg":        ".ogg",
	"application/pdf":  ".pdf",
}

const binaryExtension = ".bin"

// HTTPResolver streams a direct link into the session directory.
type HTTPResolver struct {
	client    *http.Client
	userAgent string
	threshold int64
}

// NewHTTPResolver constructs a resolver. A nil client uses http.DefaultClient.
func NewHTTPResolver(client *http.Client, userAgent string, threshold int64) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResolver{client: client, userAgent: userAgent, threshold: threshold}
}

// Download fetches link into dir/<base><ext>, reporting percent progress when
// the response carries a Content-Length.
func (r *HTTPResolver) Download(ctx context.Context, link, dir, base string, progress func(percent int)) (string, error) {
	target := sourcelink.DirectURL(link)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "acquisition", "download", "Invalid recording link", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransfer, "acquisition", "download", "download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", services.Wrap(services.ErrTransfer, "acquisition", "download",
			fmt.Sprintf("download failed: unexpected status %s", resp.Status), nil)
	}
	mediaType := parseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/html" {
		return "", services.Wrap(services.ErrTransfer, "acquisition", "download",
			"download failed: link returned an HTML page instead of media", nil)
	}

	dest := filepath.Join(dir, base+extensionFor(mediaType, resp.Request.URL.Path))
	total := resp.ContentLength
	var onWrite func(int64)
	if progress != nil && total > 0 {
		onWrite = func(written int64) {
			progress(int(written * 100 / total))
		}
	}
	written, err := fileutil.WriteAtomic(dest, resp.Body, max(total, 0), onWrite)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", services.Wrap(services.ErrTransfer, "acquisition", "download", "download failed", err)
	}
	if written < r.threshold && looksLikeMarkup(dest) {
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrTransfer, "acquisition", "download",
			"download failed: received an HTML page ("+strconv.FormatInt(written, 10)+" bytes)", nil)
	}
	return dest, nil
}

func parseMediaType(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0]))
	}
	return mediaType
}

// extensionFor maps a content type to a canonical extension, falling back to
// a recognized extension in the URL path and then to ".bin".
func extensionFor(mediaType, urlPath string) string {
	if ext, ok := contentTypeExtensions[mediaType]; ok {
		return ext
	}
	if ext := strings.ToLower(path.Ext(urlPath)); IsVideo(ext) {
		return ext
	}
	switch {
	case strings.HasPrefix(mediaType, "video/"):
		return ".mp4"
	case strings.HasPrefix(mediaType, "audio/"):
		return ".mp3"
	}
	return binaryExtension
}
