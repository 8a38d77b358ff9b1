// Package transcription is the client for the speech-to-text collaborator.
// The service works asynchronously: publish the audio, poll until the job
// finishes, then download the diarized transcript.
package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lesson-insights-go/internal/httpx"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/types"
)

type Client struct {
	baseURL string
	mock    bool
	http    *http.Client
	log     *logrus.Entry

	pollInterval time.Duration
	maxPolls     int
}

func New(baseURL string, mock bool) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		mock:         mock,
		http:         httpx.Client,
		log:          logger.New().WithField("module", "transcription"),
		pollInterval: 1500 * time.Millisecond,
		maxPolls:     40,
	}
}

type publishResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		MediaID       string `json:"MediaId"`
		Status        string `json:"Status"`
		TranscriptURL string `json:"TranscriptURL"`
	} `json:"Data"`
	Reason string `json:"Reason,omitempty"`
}

type statusResponse struct {
	Code int `json:"Code"`
	Data struct {
		Status        string `json:"Status"`
		TranscriptURL string `json:"TranscriptURL"`
	} `json:"Data"`
	Reason string `json:"Reason,omitempty"`
}

type transcriptPayload struct {
	Utterances []struct {
		StartMs int64  `json:"start_ms"`
		EndMs   int64  `json:"end_ms"`
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"utterances"`
}

// TranscribeAndDiarize submits the audio file and returns the diarized
// utterances. Order of the result is whatever the service produced; callers
// sort before analysis.
func (c *Client) TranscribeAndDiarize(ctx context.Context, audioPath string) ([]types.Utterance, error) {
	if c.mock {
		return mockUtterances(), nil
	}

	mediaID, directURL, err := c.publish(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	transcriptURL := directURL
	if transcriptURL == "" {
		transcriptURL, err = c.poll(ctx, mediaID)
		if err != nil {
			return nil, err
		}
	}

	c.log.WithField("transcript_url", transcriptURL).Info("downloading transcript")
	return c.download(ctx, transcriptURL)
}

func (c *Client) publish(ctx context.Context, audioPath string) (mediaID, directURL string, err error) {
	var resp publishResponse
	err = httpx.DoJSON(c.http, 30*time.Second, func() (*http.Request, error) {
		f, err := os.Open(audioPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		var b bytes.Buffer
		w := multipart.NewWriter(&b)
		part, err := w.CreateFormFile("audio", audioPath)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, err
		}
		w.WriteField("diarize", "true")
		w.WriteField("speakers", "2")
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &b)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}, &resp)
	if err != nil {
		return "", "", fmt.Errorf("transcribe publish: %w", err)
	}
	if resp.Code != 200 {
		return "", "", fmt.Errorf("transcribe publish error: code=%d reason=%s", resp.Code, resp.Reason)
	}
	if resp.Data.TranscriptURL != "" && strings.EqualFold(resp.Data.Status, "success") {
		return "", resp.Data.TranscriptURL, nil
	}
	return resp.Data.MediaID, "", nil
}

func (c *Client) poll(ctx context.Context, mediaID string) (string, error) {
	endpoint := c.baseURL + "/getstatus"
	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var s statusResponse
		err := httpx.DoJSON(c.http, 10*time.Second, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			q := url.Values{}
			q.Set("mediaId", mediaID)
			req.URL.RawQuery = q.Encode()
			return req, nil
		}, &s)
		if err != nil {
			continue
		}

		switch s.Data.Status {
		case "Success":
			return s.Data.TranscriptURL, nil
		case "Queued", "Processing":
			continue
		case "Failed":
			return "", fmt.Errorf("transcription failed: %s", s.Reason)
		}
	}
	return "", fmt.Errorf("transcription timeout after %d polls", c.maxPolls)
}

func (c *Client) download(ctx context.Context, transcriptURL string) ([]types.Utterance, error) {
	var payload transcriptPayload
	err := httpx.DoJSON(c.http, 30*time.Second, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, transcriptURL, nil)
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("transcript download: %w", err)
	}

	utts := make([]types.Utterance, 0, len(payload.Utterances))
	for _, u := range payload.Utterances {
		utts = append(utts, types.Utterance{
			StartMs: u.StartMs,
			EndMs:   u.EndMs,
			Speaker: roleFor(u.Speaker),
			Text:    u.Text,
		})
	}
	return utts, nil
}

// roleFor maps the service's diarization labels onto lesson roles. The
// service labels the first detected speaker "A"; lessons always open with
// the tutor greeting the student.
func roleFor(speaker string) types.SpeakerRole {
	switch strings.ToUpper(strings.TrimSpace(speaker)) {
	case "A", "SPEAKER_00", "TUTOR":
		return types.RoleTutor
	default:
		return types.RoleStudent
	}
}

// mockUtterances is a small deterministic lesson for offline runs.
func mockUtterances() []types.Utterance {
	return []types.Utterance{
		{StartMs: 0, EndMs: 5000, Speaker: types.RoleTutor, Text: "こんにちは、今日のレッスンを始めましょう。"},
		{StartMs: 5500, EndMs: 8000, Speaker: types.RoleStudent, Text: "よろしくお願いします。"},
		{StartMs: 9000, EndMs: 45000, Speaker: types.RoleTutor, Text: "前回の復習から始めます。"},
		{StartMs: 46000, EndMs: 52000, Speaker: types.RoleStudent, Text: "なるほど、わかりました。"},
		{StartMs: 70000, EndMs: 95000, Speaker: types.RoleTutor, Text: "次の問題を見てください。"},
		{StartMs: 96000, EndMs: 99000, Speaker: types.RoleStudent, Text: "えーと、うーん。"},
	}
}
