package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// Provider implements port.NotificationProvider for the Lark reminder channel
type Provider struct {
	client *Client
	logger *zap.Logger
}

// NewProvider creates a Lark notification provider
func NewProvider(client *Client, logger *zap.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger,
	}
}

// Channel returns the reminder channel this provider serves
func (p *Provider) Channel() string {
	return entity.ChannelLark
}

// Send posts a text reminder and reports the delivery outcome
func (p *Provider) Send(ctx context.Context, reminder *entity.ReminderLog, req *entity.ApprovalRequest) (*port.DeliveryReceipt, error) {
	text := fmt.Sprintf("Approval reminder for %s: %q (%d %s) is awaiting a decision from %s. Due %s.",
		req.ID, req.Title, req.AmountMinor, req.Currency, reminder.TargetRole,
		req.DueAt.Format("2006-01-02 15:04 MST"))

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message content: %w", err)
	}

	larkReq := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(p.client.receiveID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := p.client.client.Im.Message.Create(ctx, larkReq)
	if err != nil {
		p.logger.Error("Failed to send Lark reminder",
			zap.String("request_id", req.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		p.logger.Error("Lark API returned failure",
			zap.String("request_id", req.ID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return &port.DeliveryReceipt{
			Delivered: false,
			Detail:    fmt.Sprintf("API error: code=%d, msg=%s", resp.Code, resp.Msg),
		}, nil
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	p.logger.Info("Lark reminder delivered",
		zap.String("request_id", req.ID),
		zap.String("message_id", messageID))

	return &port.DeliveryReceipt{
		Delivered: true,
		Detail:    fmt.Sprintf("message_id=%s", messageID),
	}, nil
}

// Verify interface compliance
var _ port.NotificationProvider = (*Provider)(nil)
