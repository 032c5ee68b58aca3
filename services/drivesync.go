package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"webplayer/logger"
	"webplayer/types"
)

// DriveSourceName is the registered name of the public-folder mirror source
const DriveSourceName = "drive"

const (
	driveFileMarker = "/file/d/"
	driveTitleClass = "flip-entry-title"
)

// RemoteFile is one downloadable entry of a remote folder
type RemoteFile struct {
	ID   string
	Name string
}

// DriveSource mirrors the playable files of a public Google Drive folder into the media root.
// Files already present are skipped; nothing is ever deleted.
type DriveSource struct {
	FolderID string
	Client   *http.Client
	// BaseURL overrides https://drive.google.com, for tests
	BaseURL string
	// WrapWriter, when set, wraps the destination of each download (e.g. a progress bar)
	WrapWriter func(name string, size int64, w io.Writer) io.Writer
}

// NewDriveSource creates a source for the public folder id
func NewDriveSource(folderID string) *DriveSource {
	return &DriveSource{
		FolderID: folderID,
		Client:   &http.Client{Timeout: 10 * time.Minute},
		BaseURL:  "https://drive.google.com",
	}
}

func (d *DriveSource) Name() string { return DriveSourceName }

// ParseDriveFolder extracts playable file entries from the embedded folder view HTML.
// Each entry is a link to /file/d/<id>/ holding a flip-entry-title span.
func ParseDriveFolder(page string) []RemoteFile {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var files []RemoteFile
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if id := driveFileID(attr(n, "href")); id != "" {
				name := strings.TrimSpace(entryTitle(n))
				if types.KindOf(name).Playable() && !seen[id] {
					seen[id] = true
					files = append(files, RemoteFile{ID: id, Name: name})
				}
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return files
}

// driveFileID returns the id of a /file/d/<id>/... link, or ""
func driveFileID(href string) string {
	_, rest, ok := strings.Cut(href, driveFileMarker)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	id, _, _ = strings.Cut(id, "?")
	return id
}

// entryTitle returns the text of the first flip-entry-title span below n
func entryTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Span && hasClass(n, driveTitleClass) {
		return textContent(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if title := entryTitle(child); title != "" {
			return title
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}

// Sync downloads every listed file that is not yet present under root
func (d *DriveSource) Sync(ctx context.Context, root string, progress ProgressFunc) ([]string, error) {
	if d.FolderID == "" {
		return nil, errors.New("drive folder id not configured")
	}

	page, err := d.fetchFolder(ctx)
	if err != nil {
		return nil, err
	}
	files := ParseDriveFolder(page)
	if len(files) == 0 {
		logger.Warn("drive sync found no playable files", logger.String("folderId", d.FolderID))
		return nil, nil
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}

	var added []string
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		ok, err := d.download(ctx, f, root)
		if err != nil {
			return added, fmt.Errorf("download %s: %w", f.Name, err)
		}
		if ok {
			added = append(added, f.Name)
			logger.Info("drive sync downloaded file", logger.String("name", f.Name))
		}
		if progress != nil {
			progress(i+1, len(files))
		}
	}
	return added, nil
}

func (d *DriveSource) fetchFolder(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/embeddedfolderview?id=%s", d.BaseURL, d.FolderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch folder listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch folder listing: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read folder listing: %w", err)
	}
	return string(body), nil
}

// download fetches f into root unless it already exists. The file only appears under its
// final name once complete, so listings never show partial downloads.
func (d *DriveSource) download(ctx context.Context, f RemoteFile, root string) (bool, error) {
	name := filepath.Base(filepath.Clean("/" + f.Name))
	if name == "/" || name == "." || strings.ContainsAny(name, `/\`) {
		return false, fmt.Errorf("%w: remote name %q", ErrInvalidPath, f.Name)
	}
	dest := filepath.Join(root, name)
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	url := fmt.Sprintf("%s/uc?export=download&id=%s", d.BaseURL, f.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(root, syncTempPrefix+"*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	if d.WrapWriter != nil {
		w = d.WrapWriter(name, resp.ContentLength, tmp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return false, err
	}
	return true, nil
}
