package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnv_Resolve(t *testing.T) {
	t.Run("success - later layers override earlier key-for-key", func(t *testing.T) {
		// arrange
		pipeline := map[string]string{"A": "p", "B": "p", "C": "p"}
		stage := map[string]string{"B": "s"}
		step := map[string]string{"C": "x", "D": "x"}

		// act
		scope := Resolve(pipeline, stage, step)

		// assert
		assert.Equal(t, "p", scope.Get("A"))
		assert.Equal(t, "s", scope.Get("B"))
		assert.Equal(t, "x", scope.Get("C"))
		assert.Equal(t, "x", scope.Get("D"))
		assert.Equal(t, 4, scope.Len())
	})

	t.Run("success - absent optional key resolves to empty string", func(t *testing.T) {
		// act
		scope := Resolve(map[string]string{"A": "1"})

		// assert
		assert.Equal(t, "", scope.Get("NOPE"))
	})

	t.Run("success - With does not mutate the receiver", func(t *testing.T) {
		// arrange
		base := Resolve(map[string]string{"A": "1"})

		// act
		derived := base.With(map[string]string{"A": "2"})

		// assert
		assert.Equal(t, "1", base.Get("A"))
		assert.Equal(t, "2", derived.Get("A"))
	})
}

func TestEnv_Require(t *testing.T) {
	t.Run("success - all required keys present", func(t *testing.T) {
		// arrange
		scope := Resolve(map[string]string{"REGISTRY_URL": "https://r"})

		// act
		err := scope.Require([]string{"REGISTRY_URL"})

		// assert
		assert.NoError(t, err)
	})

	t.Run("fail - missing required key raises ConfigError", func(t *testing.T) {
		// arrange
		scope := Resolve(map[string]string{})

		// act
		err := scope.Require([]string{"REGISTRY_URL"})

		// assert
		var ce ConfigError
		assert.ErrorAs(t, err, &ce)
		assert.ErrorContains(t, err, "REGISTRY_URL")
	})
}

func TestEnv_Environ(t *testing.T) {
	t.Run("success - stable key order", func(t *testing.T) {
		// arrange
		scope := Resolve(map[string]string{"B": "2", "A": "1"})

		// act
		environ := scope.Environ()

		// assert
		assert.Equal(t, []string{"A=1", "B=2"}, environ)
	})
}
