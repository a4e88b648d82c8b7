package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/confstake/pkg/types"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }

func TestProviderDefaults(t *testing.T) {
	p := NewProvider(nil)

	assert.Equal(t, "dev", p.GetEnvironment())
	assert.Equal(t, "info", p.GetLog().Level)

	stake := p.GetStake()
	assert.True(t, stake.StrictSender, "默认启用严格发送方")
	assert.NotEqual(t, common.Address{}, stake.LedgerPrincipal)

	oracle := p.GetOracle()
	assert.True(t, oracle.Enabled)
	assert.Equal(t, 1, oracle.Threshold)
	assert.Equal(t, filepath.Join(p.GetDataRoot(), "oracle.keystore.json"), oracle.KeystorePath)

	api := p.GetAPI()
	assert.True(t, api.HTTP.Enabled)
	assert.Equal(t, "127.0.0.1:28680", api.HTTP.Address)

	badger := p.GetBadger()
	assert.False(t, badger.InMemory)
	assert.Equal(t, filepath.Join(p.GetDataRoot(), "badger"), badger.Path)
}

func TestProviderUserOverrides(t *testing.T) {
	dataRoot := t.TempDir()
	p := NewProvider(&types.AppConfig{
		Environment: strPtr("test"),
		Storage:     &types.UserStorageConfig{DataRoot: &dataRoot, InMemory: boolPtr(true)},
		Log:         &types.UserLogConfig{Level: strPtr("debug")},
		Stake: &types.UserStakeConfig{
			StrictSender:    boolPtr(false),
			OraclePrincipal: strPtr("0x00000000000000000000000000000000000000aa"),
			Operator:        strPtr("0x00000000000000000000000000000000000000bb"),
		},
		Oracle: &types.UserOracleConfig{
			Workers:         intPtr(4),
			CallbackDelayMs: intPtr(50),
			Threshold:       intPtr(2),
			Signers:         []string{"0x00000000000000000000000000000000000000c1", "0x00000000000000000000000000000000000000c2"},
		},
		Settlement: &types.UserSettlementConfig{
			Genesis: map[string]string{"0x00000000000000000000000000000000000000d1": "10.5"},
		},
		API: &types.UserAPIConfig{HTTPAddress: strPtr("0.0.0.0:9000"), Metrics: boolPtr(false)},
	})

	assert.Equal(t, "test", p.GetEnvironment())
	assert.Equal(t, "debug", p.GetLog().Level)
	assert.Equal(t, dataRoot, p.GetDataRoot())
	assert.True(t, p.GetBadger().InMemory)

	stake := p.GetStake()
	assert.False(t, stake.StrictSender)
	assert.Equal(t, common.HexToAddress("0xaa"), stake.OraclePrincipal)
	assert.Equal(t, common.HexToAddress("0xbb"), stake.Operator)

	oracle := p.GetOracle()
	assert.Equal(t, 4, oracle.Workers)
	assert.Equal(t, 50*time.Millisecond, oracle.CallbackDelay)
	assert.Equal(t, 2, oracle.Threshold)
	assert.Len(t, oracle.Signers, 2)

	settlement, err := p.GetSettlement()
	require.NoError(t, err)
	require.Len(t, settlement.Genesis, 1)
	assert.Equal(t, "10500000000000000000", settlement.Genesis[0].Amount.Dec())

	api := p.GetAPI()
	assert.Equal(t, "0.0.0.0:9000", api.HTTP.Address)
	assert.False(t, api.HTTP.EnableMetrics)
}

func TestProviderRejectsBadGenesis(t *testing.T) {
	p := NewProvider(&types.AppConfig{
		Settlement: &types.UserSettlementConfig{
			Genesis: map[string]string{"not-an-address": "1"},
		},
	})
	_, err := p.GetSettlement()
	assert.Error(t, err)
}
