package reminder

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Publisher MQTT 发布（common/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Notification 推送给 App 的提醒内容
type Notification struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	MedicationID  string `json:"medication_id"`
	ElderID       string `json:"elder_id"`
	ScheduledTime string `json:"scheduled_time"`
}

// NewNotification 构造提醒内容
func NewNotification(r Reminder) Notification {
	return Notification{
		Title:         "Medication Reminder",
		Body:          fmt.Sprintf("Time to take %s (%s)", r.MedicationName, r.Dosage),
		MedicationID:  r.MedicationID,
		ElderID:       r.ElderID,
		ScheduledTime: r.Time,
	}
}

// MQTTNotifier 发布到 {prefix}/{elderID}/reminders
type MQTTNotifier struct {
	publisher   Publisher
	topicPrefix string
	qos         byte
	logger      *zap.Logger
}

// NewMQTTNotifier 创建 MQTT 推送
func NewMQTTNotifier(publisher Publisher, topicPrefix string, qos byte, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{publisher: publisher, topicPrefix: topicPrefix, qos: qos, logger: logger}
}

// Topic 老人的提醒 topic
func (n *MQTTNotifier) Topic(elderID string) string {
	return fmt.Sprintf("%s/%s/reminders", n.topicPrefix, elderID)
}

func (n *MQTTNotifier) Notify(_ context.Context, r Reminder) error {
	payload, err := json.Marshal(NewNotification(r))
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}
	topic := n.Topic(r.ElderID)
	if err := n.publisher.Publish(topic, n.qos, false, payload); err != nil {
		return err
	}
	n.logger.Info("Medication reminder published",
		zap.String("topic", topic),
		zap.String("medication_id", r.MedicationID),
	)
	return nil
}

// LogNotifier 只记录日志（MQTT 未启用时）
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, r Reminder) error {
	msg := NewNotification(r)
	n.logger.Info("Medication reminder due",
		zap.String("elder_id", r.ElderID),
		zap.String("medication_id", r.MedicationID),
		zap.String("body", msg.Body),
	)
	return nil
}
