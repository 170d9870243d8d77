package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dghubble/oauth1"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

const (
	twitterPostURL   = "https://api.twitter.com/2/tweets"
	twitterVerifyURL = "https://api.twitter.com/2/users/me"
	// media upload still lives on the v1.1 API
	twitterUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
)

// TwitterPoster publishes reports to Twitter, signing requests with OAuth
// 1.0a user context. Text goes to the v2 tweets endpoint; media uploads use
// the v1.1 endpoint, which v2 does not replace.
type TwitterPoster struct {
	logger     log.Logger
	httpClient *http.Client
}

// NewTwitterPoster authenticates and verifies credentials. A failure here is
// a startup error.
func NewTwitterPoster(logger log.Logger, consumerKey, consumerSecret, accessToken, accessSecret string) (*TwitterPoster, error) {
	config := oauth1.NewConfig(consumerKey, consumerSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	p := &TwitterPoster{
		logger:     log.With(logger, "component", "twitter"),
		httpClient: config.Client(oauth1.NoContext, token),
	}
	username, err := p.verifyCredentials(context.Background())
	if err != nil {
		return nil, fmt.Errorf("twitter authentication failed: %w", err)
	}
	level.Info(p.logger).Log("msg", "authentication OK", "user", username)
	return p, nil
}

func (p *TwitterPoster) verifyCredentials(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, twitterVerifyURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("credential check returned status %d", resp.StatusCode)
	}
	var reply struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", err
	}
	return reply.Data.Username, nil
}

// Post uploads any media, then creates the tweet. A failed media upload
// drops only that attachment.
func (p *TwitterPoster) Post(ctx context.Context, text string, media []Media) error {
	var mediaIDs []string
	for _, m := range media {
		id, err := p.uploadMedia(ctx, m)
		if err != nil {
			level.Warn(p.logger).Log("msg", "error uploading media", "filename", m.Filename, "err", err)
			continue
		}
		mediaIDs = append(mediaIDs, id)
	}

	payload := map[string]interface{}{"text": text}
	if len(mediaIDs) > 0 {
		payload["media"] = map[string]interface{}{"media_ids": mediaIDs}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterPostURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		reply, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tweet creation returned status %d: %s", resp.StatusCode, reply)
	}
	return nil
}

func (p *TwitterPoster) uploadMedia(ctx context.Context, media Media) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", filepath.Base(media.Filename))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(media.Data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterUploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		reply, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("media upload returned status %d: %s", resp.StatusCode, reply)
	}
	var reply struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", err
	}
	if reply.MediaIDString == "" {
		return "", fmt.Errorf("media upload reply has no media id")
	}
	return reply.MediaIDString, nil
}
