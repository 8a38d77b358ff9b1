// Package drive is the thin client for the file-store collaborator: list
// recordings in a folder within a time range and download them by id.
package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lesson-insights-go/internal/httpx"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/types"
)

type Client struct {
	baseURL      string
	downloadsDir string
	mock         bool
	http         *http.Client
	log          *logrus.Entry
}

func New(baseURL, downloadsDir string, mock bool) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		downloadsDir: downloadsDir,
		mock:         mock,
		http:         httpx.Client,
		log:          logger.New().WithField("module", "drive"),
	}
}

var folderIDPattern = regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`)

// ExtractFolderID pulls the folder id out of a shared-folder URL. A bare id
// is accepted as-is.
func ExtractFolderID(folderURL string) (string, error) {
	if m := folderIDPattern.FindStringSubmatch(folderURL); m != nil {
		return m[1], nil
	}
	if u, err := url.Parse(folderURL); err == nil {
		if id := u.Query().Get("id"); id != "" {
			return id, nil
		}
	}
	if folderURL != "" && !strings.Contains(folderURL, "/") {
		return folderURL, nil
	}
	return "", fmt.Errorf("cannot extract folder id from %q", folderURL)
}

type listResponse struct {
	Files []struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		CreatedTime time.Time `json:"createdTime"`
		Size        int64     `json:"size"`
	} `json:"files"`
}

// ListVideos lists recordings in the folder created within [start, end].
func (c *Client) ListVideos(ctx context.Context, folderID string, start, end time.Time) ([]types.VideoFile, error) {
	if c.mock {
		return c.mockListing(folderID, start), nil
	}

	endpoint := fmt.Sprintf("%s/folders/%s/files", c.baseURL, url.PathEscape(folderID))
	var resp listResponse
	err := httpx.DoJSON(c.http, 30*time.Second, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("createdAfter", start.UTC().Format(time.RFC3339))
		q.Set("createdBefore", end.UTC().Format(time.RFC3339))
		q.Set("mimeType", "video/")
		req.URL.RawQuery = q.Encode()
		return req, nil
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	files := make([]types.VideoFile, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, types.VideoFile{
			ID:          f.ID,
			Name:        f.Name,
			CreatedTime: f.CreatedTime,
			SizeBytes:   f.Size,
		})
	}
	c.log.WithField("folder_id", folderID).WithField("count", len(files)).Info("videos listed")
	return files, nil
}

// Download fetches the file to the downloads directory and returns the
// local path.
func (c *Client) Download(ctx context.Context, fileID, fileName string) (string, error) {
	if err := os.MkdirAll(c.downloadsDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(c.downloadsDir, fmt.Sprintf("%s_%s", fileID, filepath.Base(fileName)))

	if c.mock {
		if err := os.WriteFile(dest, []byte("mock video bytes"), 0o644); err != nil {
			return "", err
		}
		return dest, nil
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	endpoint := fmt.Sprintf("%s/files/%s/content", c.baseURL, url.PathEscape(fileID))
	if err := httpx.Download(c.http, 2*time.Minute, endpoint, out); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("download %s: %w", fileID, err)
	}
	c.log.WithField("file_id", fileID).WithField("path", dest).Info("video downloaded")
	return dest, nil
}

// mockListing yields one deterministic recording per folder so offline runs
// exercise the whole pipeline.
func (c *Client) mockListing(folderID string, start time.Time) []types.VideoFile {
	return []types.VideoFile{
		{
			ID:          "mock-" + folderID + "-001",
			Name:        "lesson_recording_001.mp4",
			CreatedTime: start.Add(10 * time.Hour),
			SizeBytes:   1 << 20,
		},
	}
}
