package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/mzhdanov/membership-service/internal/kafka/producer"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// EnsureKafkaTopics проверяет и создает необходимые топики Kafka.
func EnsureKafkaTopics(brokers []string, log *logger.Logger) error {
	requiredTopics := []kafkaGo.TopicConfig{
		{Topic: producer.TopicAccountApproved, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: producer.TopicAccountRejected, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: producer.TopicSubscriptionCreated, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: producer.TopicSubscriptionUpdated, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: producer.TopicSubscriptionCancelled, NumPartitions: 2, ReplicationFactor: 1},
	}

	if len(brokers) == 0 || brokers[0] == "" {
		return errors.New("kafka broker address is empty")
	}

	connCtx, cancelConn := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelConn()

	conn, err := kafkaGo.DialLeader(connCtx, "tcp", brokers[0], "", 0)
	if err != nil {
		log.Errorw("Failed to connect to Kafka broker for topic creation", "broker", brokers[0], "error", err)
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}

	existing := make(map[string]bool)
	for _, p := range partitions {
		existing[p.Topic] = true
	}

	var toCreate []kafkaGo.TopicConfig
	for _, tc := range requiredTopics {
		if !existing[tc.Topic] {
			toCreate = append(toCreate, tc)
		}
	}
	if len(toCreate) == 0 {
		log.Debugw("All required Kafka topics already exist")
		return nil
	}

	if err := conn.CreateTopics(toCreate...); err != nil {
		if errors.Is(err, kafkaGo.TopicAlreadyExists) {
			// Другой экземпляр успел создать топики первым
			return nil
		}
		return fmt.Errorf("kafka create topics failed: %w", err)
	}

	log.Infow("Created Kafka topics", "count", len(toCreate))
	return nil
}
