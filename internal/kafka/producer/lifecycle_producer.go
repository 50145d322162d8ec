package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

const (
	TopicAccountApproved       = "account.approved"
	TopicAccountRejected       = "account.rejected"
	TopicSubscriptionCreated   = "subscription.created"
	TopicSubscriptionUpdated   = "subscription.updated"
	TopicSubscriptionCancelled = "subscription.cancelled"
)

// AccountEvent представляет событие аккаунта для Kafka
type AccountEvent struct {
	ID                 string                           `json:"id"`
	Email              string                           `json:"email"`
	RegistrationStatus domain.RegistrationStatus        `json:"registration_status"`
	SubscriptionTier   domain.SubscriptionTier          `json:"subscription_tier"`
	SubscriptionStatus domain.AccountSubscriptionStatus `json:"subscription_status"`
	Timestamp          time.Time                        `json:"timestamp"`
}

// SubscriptionEvent представляет событие подписки для Kafka
type SubscriptionEvent struct {
	ID               string                    `json:"id"`
	AccountID        string                    `json:"account_id"`
	PlanID           string                    `json:"plan_id"`
	Status           domain.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd time.Time                 `json:"current_period_end"`
	Timestamp        time.Time                 `json:"timestamp"`
}

// LifecycleProducer интерфейс для отправки событий жизненного цикла
// аккаунтов и подписок
type LifecycleProducer interface {
	PublishAccountApproved(ctx context.Context, account domain.Account) error
	PublishAccountRejected(ctx context.Context, account domain.Account) error
	PublishSubscriptionCreated(ctx context.Context, sub domain.Subscription) error
	PublishSubscriptionUpdated(ctx context.Context, sub domain.Subscription) error
	PublishSubscriptionCancelled(ctx context.Context, sub domain.Subscription) error
	Close() error
}

type kafkaLifecycleProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaLifecycleProducer создает новый продюсер событий жизненного цикла
func NewKafkaLifecycleProducer(producer sarama.SyncProducer, log *logger.Logger) LifecycleProducer {
	return &kafkaLifecycleProducer{
		producer: producer,
		log:      log,
	}
}

// PublishAccountApproved публикует событие об одобрении аккаунта
func (p *kafkaLifecycleProducer) PublishAccountApproved(ctx context.Context, account domain.Account) error {
	return p.publishAccountEvent(TopicAccountApproved, account)
}

// PublishAccountRejected публикует событие об отклонении аккаунта
func (p *kafkaLifecycleProducer) PublishAccountRejected(ctx context.Context, account domain.Account) error {
	return p.publishAccountEvent(TopicAccountRejected, account)
}

// PublishSubscriptionCreated публикует событие о создании подписки
func (p *kafkaLifecycleProducer) PublishSubscriptionCreated(ctx context.Context, sub domain.Subscription) error {
	return p.publishSubscriptionEvent(TopicSubscriptionCreated, sub)
}

// PublishSubscriptionUpdated публикует событие об изменении подписки
func (p *kafkaLifecycleProducer) PublishSubscriptionUpdated(ctx context.Context, sub domain.Subscription) error {
	return p.publishSubscriptionEvent(TopicSubscriptionUpdated, sub)
}

// PublishSubscriptionCancelled публикует событие об отмене подписки
func (p *kafkaLifecycleProducer) PublishSubscriptionCancelled(ctx context.Context, sub domain.Subscription) error {
	return p.publishSubscriptionEvent(TopicSubscriptionCancelled, sub)
}

func (p *kafkaLifecycleProducer) publishAccountEvent(topic string, account domain.Account) error {
	event := AccountEvent{
		ID:                 account.ID.String(),
		Email:              account.Email,
		RegistrationStatus: account.RegistrationStatus,
		SubscriptionTier:   account.SubscriptionTier,
		SubscriptionStatus: account.SubscriptionStatus,
		Timestamp:          time.Now(),
	}
	return p.publish(topic, account.ID.String(), event)
}

func (p *kafkaLifecycleProducer) publishSubscriptionEvent(topic string, sub domain.Subscription) error {
	event := SubscriptionEvent{
		ID:               sub.ID.String(),
		AccountID:        sub.AccountID.String(),
		PlanID:           sub.PlanID,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		Timestamp:        time.Now(),
	}
	return p.publish(topic, sub.ID.String(), event)
}

// publish публикует событие в Kafka
func (p *kafkaLifecycleProducer) publish(topic, key string, event any) error {
	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish lifecycle event: %w", err)
	}

	p.log.Info("Published lifecycle event to topic %s: partition=%d offset=%d",
		topic, partition, offset)

	return nil
}

// Close закрывает продюсер
func (p *kafkaLifecycleProducer) Close() error {
	return p.producer.Close()
}
