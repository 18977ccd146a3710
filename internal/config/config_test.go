package config

import (
	"ip_forest/internal/dataType"
	"ip_forest/internal/forest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMainConfigDefaults(t *testing.T) {
	cfg, err := ParseMainConfig([]byte("port: \"8080\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/ipforest", cfg.WebPath)
	assert.Equal(t, forest.DefaultBucketCount, cfg.BucketCount)
	assert.Equal(t, DefaultAllowSet, cfg.AllowSet)
	assert.Equal(t, DefaultBlockSet, cfg.BlockSet)
	require.Len(t, cfg.Sets, 2)
	assert.Equal(t, "IP_BlockList.conf", cfg.Sets[1].File)
}

func TestParseMainConfigSets(t *testing.T) {
	data := `
port: "25556"
web_path: /gate
rule_path: /etc/ipforest/rules
allow_set: office
block_set: ""
sets:
  - name: office
    file: office.conf
    max_nodes: 4096
  - name: scanners
    file: /var/lib/scanners.conf
`
	cfg, err := ParseMainConfig([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "/gate", cfg.WebPath)
	assert.Equal(t, "office", cfg.AllowSet)
	assert.Empty(t, cfg.BlockSet)
	assert.Equal(t, []dataType.IPSetRule{
		{Name: "office", File: "office.conf", MaxNodes: 4096},
		{Name: "scanners", File: "/var/lib/scanners.conf"},
	}, cfg.Sets)
}

func TestParseMainConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "port: [\n"},
		{"port not numeric", "port: http\n"},
		{"web path without slash", "web_path: gate\n"},
		{"set without file", "allow_set: a\nblock_set: \"\"\nsets:\n  - name: a\n"},
		{"duplicate set", "allow_set: a\nblock_set: \"\"\nsets:\n  - {name: a, file: a.conf}\n  - {name: a, file: b.conf}\n"},
		{"negative max nodes", "allow_set: a\nblock_set: \"\"\nsets:\n  - {name: a, file: a.conf, max_nodes: -1}\n"},
		{"unlisted allow set", "allow_set: nobody\n"},
		{"unlisted block set", "block_set: nobody\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMainConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMainConfig(t *testing.T) {
	base := t.TempDir()
	_, err := LoadMainConfig(base)
	assert.Error(t, err, "missing file is reported")

	require.NoError(t, os.MkdirAll(filepath.Join(base, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "config", "ipforest.yml"), []byte("node_name: edge-1\n"), 0644))
	cfg, err := LoadMainConfig(base)
	require.NoError(t, err)
	assert.Equal(t, "edge-1", cfg.NodeName)
}

func TestLoadRules(t *testing.T) {
	rulePath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rulePath, "allow.conf"), []byte("10.0.0.0/8\n"), 0644))
	blockFile := filepath.Join(t.TempDir(), "block.conf")
	require.NoError(t, os.WriteFile(blockFile, []byte("# nothing yet\n"), 0644))

	cfg := defaultMainConfig()
	cfg.RulePath = rulePath
	cfg.Sets = []dataType.IPSetRule{
		{Name: DefaultAllowSet, File: "allow.conf", MaxNodes: 100},
		{Name: DefaultBlockSet, File: blockFile},
	}

	f := forest.NewForest(cfg.BucketCount, nil)
	rs, err := LoadRules(&cfg, f)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultAllowSet, DefaultBlockSet}, f.Names())
	assert.True(t, f.Match(DefaultAllowSet, "10.9.9.9"))
	assert.False(t, f.Match(DefaultBlockSet, "10.9.9.9"))
	assert.Equal(t, 100, rs.MaxNodes(DefaultAllowSet))
	assert.Zero(t, rs.MaxNodes("unknown"))

	// reload picks up the new file content
	require.NoError(t, os.WriteFile(blockFile, []byte("10.9.9.9\n"), 0644))
	require.NoError(t, rs.ReloadSet(DefaultBlockSet))
	assert.True(t, f.Match(DefaultBlockSet, "10.9.9.9"))

	err = rs.ReloadSet("unknown")
	assert.ErrorIs(t, err, dataType.ErrUnknownSet)
}

func TestLoadRulesBadFile(t *testing.T) {
	rulePath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rulePath, "allow.conf"), []byte("10.0.0.0/40\n"), 0644))

	cfg := defaultMainConfig()
	cfg.RulePath = rulePath
	cfg.Sets = []dataType.IPSetRule{{Name: DefaultAllowSet, File: "allow.conf"}}
	cfg.BlockSet = ""

	_, err := LoadRules(&cfg, forest.NewForest(0, nil))
	assert.ErrorIs(t, err, dataType.ErrMalformedAddress)
}
