// Package membership проверяет подписку пользователя на канал через Bot API.
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client вызывает метод getChatMember.
type Client struct {
	token      string
	apiURL     string
	channelID  string
	httpClient *http.Client
}

// NewClient создаёт клиент для канала channelID.
func NewClient(apiURL, token, channelID string, timeout time.Duration) *Client {
	return &Client{
		token:      token,
		apiURL:     apiURL,
		channelID:  channelID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMemberResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		Status string `json:"status"`
	} `json:"result"`
}

// IsMember сообщает, состоит ли пользователь в канале.
// Статусы left и kicked считаются отсутствием подписки.
func (c *Client) IsMember(ctx context.Context, userID int64) (bool, error) {
	const op = "membership.IsMember"

	q := url.Values{}
	q.Set("chat_id", c.channelID)
	q.Set("user_id", strconv.FormatInt(userID, 10))
	endpoint := fmt.Sprintf("%s/bot%s/getChatMember?%s", c.apiURL, c.token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var body chatMemberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !body.OK {
		// Bot API отвечает 400, если пользователь никогда не заходил в канал.
		if resp.StatusCode == http.StatusBadRequest {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, errors.New("unexpected response: "+resp.Status+" "+body.Description))
	}

	switch body.Result.Status {
	case "left", "kicked", "":
		return false, nil
	}
	return true, nil
}
