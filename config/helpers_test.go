package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInt(t *testing.T) {
	cfg := map[string]any{
		"decoded": 3.0,
		"native":  int64(4),
		"name":    "bin",
	}

	assert.Equal(t, 3, GetInt(cfg, "decoded", 0))
	assert.Equal(t, 4, GetInt(cfg, "native", 0))
	assert.Equal(t, 7, GetInt(cfg, "name", 7))
	assert.Equal(t, 9, GetInt(cfg, "missing", 9))
}
