package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsnap/internal/platform/config"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, splitBrokers(""))
}

func TestNew_RequiresBrokers(t *testing.T) {
	_, err := New(config.KafkaConfig{}, nil)
	require.Error(t, err)
}
