package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nova.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "static", cfg.Gas.Mode)
	assert.Equal(t, "memory", cfg.Storage.Conversation.Driver)
	assert.Equal(t, "memory", cfg.Storage.Audit.Driver)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, 6, cfg.Agent.HistoryWindow)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data"), cfg.Runtime.DataDir)
	assert.Equal(t, int64(15), int64(cfg.Cache.BalanceTTL().Seconds()))
	assert.Equal(t, 3, cfg.Knowledge.MaxResults)
	assert.Empty(t, cfg.Knowledge.Source)
	assert.False(t, cfg.Alerting.Enabled())
}

func TestLoadResolvesSecretsFromEnv(t *testing.T) {
	t.Setenv("NOVA_TEST_ANTHROPIC", "sk-ant-test")
	t.Setenv("NOVA_TEST_DSN", "user:pass@tcp(localhost:3306)/nova")
	path := writeConfig(t, `{
		"llm": {"provider": "anthropic", "anthropic": {"api_key_env": "NOVA_TEST_ANTHROPIC"}},
		"storage": {"audit": {"driver": "mysql", "dsn_env": "NOVA_TEST_DSN"}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/nova", cfg.Storage.Audit.DSN)
}

func TestLoadResolvesAlertWebhooks(t *testing.T) {
	t.Setenv("NOVA_TEST_SLACK", "https://hooks.slack.test/abc")
	path := writeConfig(t, `{
		"alerting": {"slack": {"webhook_url_env": "NOVA_TEST_SLACK", "channel": "#ops"}},
		"knowledge": {"source": "kb.json", "max_results": 5}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.slack.test/abc", cfg.Alerting.Slack.WebhookURL)
	assert.Empty(t, cfg.Alerting.DingTalk.WebhookURL)
	assert.True(t, cfg.Alerting.Enabled())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "kb.json"), cfg.Knowledge.Source)
	assert.Equal(t, 5, cfg.Knowledge.MaxResults)
}

func TestLoadParsesChainMaps(t *testing.T) {
	path := writeConfig(t, `{
		"chains": {"catalog_path": "chains.yaml", "rpc_overrides": {"4202": "http://localhost:8545"}},
		"gas": {"mode": "static", "default": 0.0002, "per_chain": {"1": 0.002}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	rpc, err := cfg.Chains.RPCMap()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", rpc[4202])

	gas, err := cfg.Gas.PerChainMap()
	require.NoError(t, err)
	assert.Equal(t, 0.002, gas[1])
	assert.Equal(t, filepath.Join(filepath.Dir(path), "chains.yaml"), cfg.Chains.CatalogPath)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"gas mode":        `{"gas": {"mode": "oracle"}}`,
		"provider":        `{"llm": {"provider": "python_bridge"}}`,
		"mysql no dsn":    `{"storage": {"audit": {"driver": "mysql", "dsn_env": "NOVA_TEST_UNSET_DSN"}}}`,
		"bad chain key":   `{"chains": {"rpc_overrides": {"lisk": "http://x"}}}`,
		"session backend": `{"storage": {"conversation": {"driver": "etcd"}}}`,
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadFromEnvUsesNovaConfig(t *testing.T) {
	path := writeConfig(t, `{"server": {"address": ":9999"}}`)
	t.Setenv("NOVA_CONFIG", path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Address)
}
