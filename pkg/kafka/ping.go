package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
)

// Ping opens and closes a client to check that at least one broker answers.
func Ping(brokers []string) error {
	client, err := sarama.NewClient(brokers, sarama.NewConfig())
	if err != nil {
		return fmt.Errorf("kafka brokers %v unreachable: %w", brokers, err)
	}
	return client.Close()
}
