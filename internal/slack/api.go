package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

var ErrAPI = errors.New("slack: api call failed")

// apiClient calls the Slack Web API.
type apiClient struct {
	base string
	http *http.Client
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type connectionsOpenResponse struct {
	apiResponse
	URL string `json:"url"`
}

type usersInfoResponse struct {
	apiResponse
	User struct {
		Name    string `json:"name"`
		Profile struct {
			DisplayName string `json:"display_name"`
			RealName    string `json:"real_name"`
		} `json:"profile"`
	} `json:"user"`
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

func (a apiClient) call(ctx context.Context, method, token string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+method, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAPI, method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", ErrAPI, method, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrAPI, method, err)
	}
	return nil
}

// openConnection asks for a Socket Mode websocket URL.
func (a apiClient) openConnection(ctx context.Context, appToken string) (string, error) {
	var out connectionsOpenResponse
	if err := a.call(ctx, "apps.connections.open", appToken, nil, "", &out); err != nil {
		return "", err
	}
	if !out.OK {
		return "", fmt.Errorf("%w: apps.connections.open: %s", ErrAPI, out.Error)
	}
	return out.URL, nil
}

func (a apiClient) postMessage(ctx context.Context, botToken, channel, text string) error {
	body, err := json.Marshal(postMessageRequest{Channel: channel, Text: text})
	if err != nil {
		return err
	}
	var out apiResponse
	if err := a.call(ctx, "chat.postMessage", botToken, bytes.NewReader(body), "application/json; charset=utf-8", &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("%w: chat.postMessage: %s", ErrAPI, out.Error)
	}
	return nil
}

// userName resolves a user id to the name shown in Slack.
func (a apiClient) userName(ctx context.Context, botToken, userID string) (string, error) {
	form := url.Values{"user": {userID}}
	var out usersInfoResponse
	err := a.call(ctx, "users.info", botToken, bytes.NewBufferString(form.Encode()), "application/x-www-form-urlencoded", &out)
	if err != nil {
		return "", err
	}
	if !out.OK {
		return "", fmt.Errorf("%w: users.info: %s", ErrAPI, out.Error)
	}
	switch {
	case out.User.Profile.DisplayName != "":
		return out.User.Profile.DisplayName, nil
	case out.User.Profile.RealName != "":
		return out.User.Profile.RealName, nil
	}
	return out.User.Name, nil
}
