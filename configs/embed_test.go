package configs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/confstake/pkg/types"
)

func TestEmbeddedConfigsParse(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		data := Get(env)
		require.NotEmpty(t, data, env)

		var cfg types.AppConfig
		require.NoError(t, json.Unmarshal(data, &cfg), env)
		require.NotNil(t, cfg.Environment)
		assert.Equal(t, env, *cfg.Environment)
		require.NotNil(t, cfg.Oracle)
		assert.NotNil(t, cfg.Oracle.KeystorePath)
	}
	assert.Nil(t, Get("staging"))
}
