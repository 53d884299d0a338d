package internal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_UnmarshalJSON(t *testing.T) {
	t.Run("success - unmarshal json works as expected", func(t *testing.T) {
		// arrange
		jsonInput := []byte(`{"queue_size": 4, "retain_runs": 10, "sse_timeout_seconds": 600}`)
		var config Configuration

		// act
		err := json.Unmarshal(jsonInput, &config)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, int64(4), config.QueueSize)
		assert.Equal(t, int64(10), config.RetainRuns)
		assert.Equal(t, int64(600), config.SSETimeoutSec)
	})
}

func TestConfig_UpdateConfiguration(t *testing.T) {
	t.Run("success - updated values are read back on the next start", func(t *testing.T) {
		// arrange
		t.Chdir(t.TempDir())
		InitializeConfiguration()

		// act
		err := UpdateConfiguration(&Configuration{
			QueueSize:     7,
			RetainRuns:    20,
			SSETimeoutSec: 900,
		})

		// assert
		assert.NoError(t, err)
		InitializeConfiguration()
		assert.Equal(t, int64(7), Config.QueueSize)
		assert.Equal(t, int64(20), Config.RetainRuns)
		assert.Equal(t, int64(900), Config.SSETimeoutSec)
	})
}

func TestConfig_MarshalJSON(t *testing.T) {
	t.Run("success - marshal json works as expected", func(t *testing.T) {
		// arrange
		config := Configuration{
			QueueSize:     5,
			RetainRuns:    50,
			SSETimeoutSec: 3600,
		}

		// act
		b, err := json.Marshal(config)

		// assert
		assert.NoError(t, err)
		assert.Contains(t, string(b), `"queue_size":5`)
		assert.Contains(t, string(b), `"retain_runs":50`)
		assert.Contains(t, string(b), `"sse_timeout_seconds":3600`)
	})
}
