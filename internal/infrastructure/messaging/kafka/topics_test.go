package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
)

type fakeConn struct {
	existing map[string]bool
	created  []kafka.TopicConfig
	err      error
}

func (c *fakeConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if c.err != nil {
		return c.err
	}
	c.created = append(c.created, topics...)
	return nil
}

func (c *fakeConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if len(topics) == 1 && c.existing[topics[0]] {
		return []kafka.Partition{{Topic: topics[0]}}, nil
	}
	return nil, kafka.UnknownTopicOrPartition
}

func (c *fakeConn) Close() error { return nil }

func TestDefaultTopics(t *testing.T) {
	topics := DefaultTopics(0)
	require.Len(t, topics, 3)
	for _, tc := range topics {
		assert.Equal(t, 1, tc.ReplicationFactor)
		assert.Positive(t, tc.NumPartitions)
	}
	assert.Equal(t, 3, DefaultTopics(3)[0].ReplicationFactor)
}

func TestTopicManager_EnsureTopics(t *testing.T) {
	conn := &fakeConn{existing: map[string]bool{TopicCaseUpdated: true}}
	m := &TopicManager{conn: conn, logger: logging.NewNopLogger()}

	require.NoError(t, m.EnsureTopics(DefaultTopics(1)))
	require.Len(t, conn.created, 2)
	assert.Equal(t, TopicAuditDerived, conn.created[0].Topic)
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
	assert.Equal(t, TopicDeadLetter, conn.created[1].Topic)
}

func TestTopicManager_EnsureTopicsErrors(t *testing.T) {
	m := &TopicManager{conn: &fakeConn{err: kafka.TopicAlreadyExists}, logger: logging.NewNopLogger()}
	assert.NoError(t, m.EnsureTopics([]TopicConfig{{Name: "t", NumPartitions: 1, ReplicationFactor: 1}}))

	m = &TopicManager{conn: &fakeConn{err: kafka.InvalidReplicationFactor}, logger: logging.NewNopLogger()}
	assert.Error(t, m.EnsureTopics([]TopicConfig{{Name: "t", NumPartitions: 1, ReplicationFactor: 1}}))
	assert.Error(t, m.EnsureTopics([]TopicConfig{{Name: "t"}}))
}
