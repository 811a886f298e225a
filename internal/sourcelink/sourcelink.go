// Package sourcelink classifies the acquisition endpoints carried by a session.
package sourcelink

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind identifies how a link is acquired.
type Kind int

const (
	KindNone Kind = iota
	// KindFolder is a remote folder fetched by the external helper.
	KindFolder
	// KindDriveFile is a single hosted file rewritten to its direct-download form.
	KindDriveFile
	// KindHTTP is any other http(s) resource streamed directly.
	KindHTTP
	// KindLocal is a file:// URL or absolute path already on disk.
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindDriveFile:
		return "drive_file"
	case KindHTTP:
		return "http"
	case KindLocal:
		return "local"
	default:
		return "none"
	}
}

// Remote reports whether the kind requires a network transfer.
func (k Kind) Remote() bool {
	return k == KindFolder || k == KindDriveFile || k == KindHTTP
}

var (
	folderPattern = regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`)
	filePattern   = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)`)
)

// Classify inspects link and reports its kind.
func Classify(link string) Kind {
	link = strings.TrimSpace(link)
	if link == "" {
		return KindNone
	}
	lower := strings.ToLower(link)
	switch {
	case strings.HasPrefix(lower, "file://"):
		return KindLocal
	case filepath.IsAbs(link):
		return KindLocal
	case !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://"):
		return KindNone
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return KindNone
	}
	if isDriveHost(u.Host) {
		if folderPattern.MatchString(u.Path) {
			return KindFolder
		}
		if driveFileID(u) != "" {
			return KindDriveFile
		}
	}
	return KindHTTP
}

// IsFolder reports whether link points at a remote folder.
func IsFolder(link string) bool {
	return Classify(link) == KindFolder
}

// DirectURL rewrites hosted-file share links to their direct-download form.
// Other links are returned unchanged.
func DirectURL(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || !isDriveHost(u.Host) {
		return link
	}
	id := driveFileID(u)
	if id == "" {
		return link
	}
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id)
}

// LocalPath returns the filesystem path for a local link.
func LocalPath(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if Classify(link) != KindLocal {
		return "", false
	}
	if strings.HasPrefix(strings.ToLower(link), "file://") {
		u, err := url.Parse(link)
		if err != nil {
			return "", false
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return "", false
		}
		return filepath.Clean(filepath.FromSlash(path)), true
	}
	return filepath.Clean(link), true
}

func isDriveHost(host string) bool {
	host = strings.ToLower(host)
	return host == "drive.google.com" || host == "docs.google.com"
}

func driveFileID(u *url.URL) string {
	if m := filePattern.FindStringSubmatch(u.Path); len(m) == 2 {
		return m[1]
	}
	switch strings.TrimSuffix(u.Path, "/") {
	case "/open", "/uc":
		return u.Query().Get("id")
	}
	return ""
}
