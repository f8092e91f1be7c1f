package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"doctor-portal/internal/models"
)

// Messages GET /chat/cases/{id}/messages
func (c *Client) Messages(ctx context.Context, cred Credentials, caseID string, limit int) (models.ChatMessagesResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	return doEnvelope[models.ChatMessagesResponse](ctx, c, call{
		method:     http.MethodGet,
		path:       "/chat/cases/{caseId}/messages",
		pathParams: map[string]string{"caseId": caseID},
		query:      map[string]string{"limit": strconv.Itoa(limit)},
		cred:       &cred,
	})
}

// SendMessage POST /chat/messages
func (c *Client) SendMessage(ctx context.Context, cred Credentials, req models.SendMessageRequest) (models.ChatMessage, error) {
	if req.MessageType == "" {
		req.MessageType = models.MessageText
	}
	return doEnvelope[models.ChatMessage](ctx, c, call{
		method: http.MethodPost,
		path:   "/chat/messages",
		body:   req,
		cred:   &cred,
	})
}

// MarkRead POST /chat/cases/{id}/read
func (c *Client) MarkRead(ctx context.Context, cred Credentials, caseID string) error {
	_, err := c.execute(ctx, call{
		method:     http.MethodPost,
		path:       "/chat/cases/{caseId}/read",
		pathParams: map[string]string{"caseId": caseID},
		cred:       &cred,
	})
	return err
}

// Threads GET /chat/threads
func (c *Client) Threads(ctx context.Context, cred Credentials) ([]models.ChatThread, error) {
	return doEnvelope[[]models.ChatThread](ctx, c, call{
		method: http.MethodGet,
		path:   "/chat/threads",
		cred:   &cred,
	})
}

// UnreadCounts GET /chat/unread
func (c *Client) UnreadCounts(ctx context.Context, cred Credentials) (models.UnreadCounts, error) {
	return doEnvelope[models.UnreadCounts](ctx, c, call{
		method: http.MethodGet,
		path:   "/chat/unread",
		cred:   &cred,
	})
}
