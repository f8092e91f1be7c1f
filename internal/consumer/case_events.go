package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqttcommon "doctor-portal/common/mqtt"

	"go.uber.org/zap"
)

// DefaultCaseEventTopic 病例事件主题，格式 doctor/{doctorId}/cases
const DefaultCaseEventTopic = "doctor/+/cases"

// Subscriber MQTT 订阅（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// Refresher 触发某个医生的会话立即刷新
type Refresher interface {
	RefreshDoctor(doctorID string) int
}

// CaseEvent 后端推送的病例事件
type CaseEvent struct {
	CaseID string `json:"caseId"`
	Event  string `json:"event"` // claimed / message / completed / ...
}

// CaseEventConsumer 病例事件消费者：收到事件后让对应医生的轮询器立即刷新
type CaseEventConsumer struct {
	subscriber Subscriber
	refresher  Refresher
	topic      string
	logger     *zap.Logger
}

// NewCaseEventConsumer 创建消费者
func NewCaseEventConsumer(subscriber Subscriber, refresher Refresher, topic string, logger *zap.Logger) *CaseEventConsumer {
	if topic == "" {
		topic = DefaultCaseEventTopic
	}
	return &CaseEventConsumer{
		subscriber: subscriber,
		refresher:  refresher,
		topic:      topic,
		logger:     logger,
	}
}

// Start 订阅并阻塞直到 ctx 取消
func (c *CaseEventConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(c.topic, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to case events: %w", err)
	}
	c.logger.Info("Case event consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *CaseEventConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("Case event consumer stopped")
}

func (c *CaseEventConsumer) handleMessage(topic string, payload []byte) error {
	// 主题格式: doctor/{doctorId}/cases
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[1] == "" {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	doctorID := parts[1]

	var event CaseEvent
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal case event: %w", err)
		}
	}

	n := c.refresher.RefreshDoctor(doctorID)
	c.logger.Debug("Case event received",
		zap.String("doctor_id", doctorID),
		zap.String("case_id", event.CaseID),
		zap.String("event", event.Event),
		zap.Int("sessions_refreshed", n),
	)
	return nil
}
