package sessionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"sel-lesson-service/internal/logger"
)

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

// Client talks to the backend session API.
type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("session api base url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return &Client{
		log:        log.With("client", "SessionAPI"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type startActivityRequest struct {
	SessionID string `json:"sessionId"`
	Activity  string `json:"activity"`
}

type startActivityResponse struct {
	ActivityID string `json:"activityId"`
}

type completeLessonRequest struct {
	LessonID string `json:"lessonId"`
}

// StartActivity registers a standalone activity and returns its id.
func (c *Client) StartActivity(ctx context.Context, sessionID, activityName string) (string, error) {
	raw, err := c.do(ctx, "/start_activity", startActivityRequest{SessionID: sessionID, Activity: activityName})
	if err != nil {
		return "", err
	}
	var out startActivityResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode start_activity response: %w", err)
	}
	if out.ActivityID == "" {
		return "", errors.New("start_activity response has no activityId")
	}
	return out.ActivityID, nil
}

// CompleteLesson reports a finished lesson.
func (c *Client) CompleteLesson(ctx context.Context, lessonID string) error {
	_, err := c.do(ctx, "/complete_lesson", completeLessonRequest{LessonID: lessonID})
	return err
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return fmt.Sprintf("session api http %d: %s", e.StatusCode, msg)
}

func (c *Client) do(ctx context.Context, path string, body any) ([]byte, error) {
	backoff := c.cfg.Backoff

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			return raw, nil
		}
		if !retryable(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := backoff + time.Duration(rand.Int63n(int64(backoff)/2+1))
		c.log.Warn("session api request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
}

func (c *Client) doOnce(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// LogOnly stands in for the session API when none is configured.
type LogOnly struct {
	log *logger.Logger
}

func NewLogOnly(log *logger.Logger) *LogOnly {
	if log == nil {
		log = logger.Nop()
	}
	return &LogOnly{log: log.With("client", "SessionAPI")}
}

func (l *LogOnly) StartActivity(_ context.Context, sessionID, activityName string) (string, error) {
	id := fmt.Sprintf("%s-%s-%d", sessionID, activityName, time.Now().UnixNano())
	l.log.Info("activity started", "session_id", sessionID, "activity", activityName, "activity_id", id)
	return id, nil
}

func (l *LogOnly) CompleteLesson(_ context.Context, lessonID string) error {
	l.log.Info("lesson completed", "lesson_id", lessonID)
	return nil
}
