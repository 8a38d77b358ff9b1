// Package media is the thin client for the media-transform collaborator:
// video in, loudness-normalized mono 16kHz audio plus duration out.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lesson-insights-go/internal/httpx"
	"lesson-insights-go/internal/logger"
)

type Client struct {
	baseURL  string
	audioDir string
	mock     bool
	http     *http.Client
	log      *logrus.Entry
}

func New(baseURL, audioDir string, mock bool) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		audioDir: audioDir,
		mock:     mock,
		http:     httpx.Client,
		log:      logger.New().WithField("module", "media"),
	}
}

type extractResponse struct {
	AudioPath   string  `json:"audio_path"`
	DurationSec float64 `json:"duration_sec"`
}

// ProcessVideo extracts normalized audio from the video at videoPath and
// returns the audio path and the recording duration in whole seconds.
func (c *Client) ProcessVideo(ctx context.Context, videoPath, fileID string) (string, int, error) {
	if err := os.MkdirAll(c.audioDir, 0o755); err != nil {
		return "", 0, err
	}

	if c.mock {
		audioPath := filepath.Join(c.audioDir, fileID+".wav")
		if err := os.WriteFile(audioPath, []byte("mock audio bytes"), 0o644); err != nil {
			return "", 0, err
		}
		return audioPath, 3600, nil
	}

	payload, err := json.Marshal(map[string]string{
		"video_path": videoPath,
		"output_dir": c.audioDir,
		"output_id":  fileID,
	})
	if err != nil {
		return "", 0, err
	}

	var resp extractResponse
	err = httpx.DoJSON(c.http, 5*time.Minute, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &resp)
	if err != nil {
		return "", 0, fmt.Errorf("audio extraction: %w", err)
	}
	if resp.AudioPath == "" || resp.DurationSec <= 0 {
		return "", 0, fmt.Errorf("audio extraction returned empty result for %s", videoPath)
	}

	c.log.WithField("file_id", fileID).WithField("duration_sec", resp.DurationSec).Info("audio extracted")
	return resp.AudioPath, int(resp.DurationSec), nil
}
