package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"transfera/models"

	"go.uber.org/zap"
)

// NotificationService delivers customer-facing emails. Delivery is
// asynchronous from the booking flow's point of view; implementations are
// called from the queue worker.
type NotificationService interface {
	SendEmail(ctx context.Context, payload models.EmailPayload) error
}

// WebhookNotificationService posts payloads to the external email webhook,
// authenticating with a bearer secret.
type WebhookNotificationService struct {
	httpClient *http.Client
	url        string
	secret     string
	logger     *zap.Logger
}

func NewWebhookNotificationService(url, secret string, logger *zap.Logger) *WebhookNotificationService {
	return &WebhookNotificationService{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        url,
		secret:     secret,
		logger:     logger,
	}
}

func (s *WebhookNotificationService) SendEmail(ctx context.Context, payload models.EmailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.secret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email webhook unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Error("email webhook rejected payload",
			zap.String("emailType", payload.EmailType),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail))
		return fmt.Errorf("email webhook returned status %d", resp.StatusCode)
	}

	s.logger.Info("email dispatched",
		zap.String("emailType", payload.EmailType),
		zap.String("bookingRef", payload.BookingRef))
	return nil
}
