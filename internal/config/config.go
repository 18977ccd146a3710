package config

import (
	"fmt"
	"ip_forest/internal/dataType"
	"ip_forest/internal/forest"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAllowSet = "allow"
	DefaultBlockSet = "block"
)

type MainConfig struct {
	Port                  string               `yaml:"port" validate:"required,numeric"`
	WebPath               string               `yaml:"web_path" validate:"required,startswith=/"`
	RulePath              string               `yaml:"rule_path" validate:"required"`
	LogPath               string               `yaml:"log_path"`
	NodeName              string               `yaml:"node_name"`
	AdminToken            string               `yaml:"admin_token"`
	BucketCount           int                  `yaml:"bucket_count" validate:"gte=0"`
	AllowSet              string               `yaml:"allow_set"`
	BlockSet              string               `yaml:"block_set"`
	Sets                  []dataType.IPSetRule `yaml:"sets" validate:"unique=Name,dive"`
	ConnectingHostHeaders []string             `yaml:"connecting_host_headers"`
	ConnectingIPHeaders   []string             `yaml:"connecting_ip_headers"`
	ConnectingURIHeaders  []string             `yaml:"connecting_uri_headers"`
}

func defaultMainConfig() MainConfig {
	return MainConfig{
		Port:        "25556",
		WebPath:     "/ipforest",
		RulePath:    "/www/ip_forest/config/rules",
		LogPath:     "/www/ip_forest/log/",
		NodeName:    "IP Forest",
		BucketCount: forest.DefaultBucketCount,
		AllowSet:    DefaultAllowSet,
		BlockSet:    DefaultBlockSet,
		Sets: []dataType.IPSetRule{
			{Name: DefaultAllowSet, File: "IP_AllowList.conf"},
			{Name: DefaultBlockSet, File: "IP_BlockList.conf"},
		},
		ConnectingHostHeaders: []string{"IPForest-Real-Host"},
		ConnectingIPHeaders:   []string{"IPForest-Real-IP"},
		ConnectingURIHeaders:  []string{"IPForest-Original-URI"},
	}
}

// LoadMainConfig Read the configuration file and return the configuration object
func LoadMainConfig(basePath string) (*MainConfig, error) {
	defaultCfg := defaultMainConfig()

	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "ipforest.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return &defaultCfg, err
	}

	return ParseMainConfig(data)
}

// ParseMainConfig decodes YAML on top of the defaults and validates the result.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	cfg := defaultMainConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("[ERROR] failed to parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("[ERROR] invalid config: %w", err)
	}
	if cfg.AllowSet != "" && !cfg.hasSet(cfg.AllowSet) {
		return nil, fmt.Errorf("[ERROR] invalid config: allow_set %q is not listed in sets", cfg.AllowSet)
	}
	if cfg.BlockSet != "" && !cfg.hasSet(cfg.BlockSet) {
		return nil, fmt.Errorf("[ERROR] invalid config: block_set %q is not listed in sets", cfg.BlockSet)
	}
	return &cfg, nil
}

func (cfg *MainConfig) hasSet(name string) bool {
	for _, s := range cfg.Sets {
		if s.Name == name {
			return true
		}
	}
	return false
}

// RuleSet stores the forest and the sets the checks consult
type RuleSet struct {
	Forest   *forest.Forest
	AllowSet string
	BlockSet string
	sets     map[string]dataType.IPSetRule
}

// LoadRules Load every configured set into f
func LoadRules(cfg *MainConfig, f *forest.Forest) (*RuleSet, error) {
	rs := RuleSet{
		Forest:   f,
		AllowSet: cfg.AllowSet,
		BlockSet: cfg.BlockSet,
		sets:     make(map[string]dataType.IPSetRule, len(cfg.Sets)),
	}

	for _, set := range cfg.Sets {
		if !filepath.IsAbs(set.File) {
			set.File = filepath.Join(cfg.RulePath, set.File)
		}
		rs.sets[set.Name] = set
		if err := f.Load(set.Name, set.File, set.MaxNodes); err != nil {
			return nil, err
		}
	}

	return &rs, nil
}

// ReloadSet rebuilds a configured set from its rule file
func (rs *RuleSet) ReloadSet(name string) error {
	set, ok := rs.sets[name]
	if !ok {
		return fmt.Errorf("%w: %s is not configured", dataType.ErrUnknownSet, name)
	}
	return rs.Forest.Load(set.Name, set.File, set.MaxNodes)
}

// MaxNodes returns the node limit configured for name, zero when unknown.
func (rs *RuleSet) MaxNodes(name string) int {
	return rs.sets[name].MaxNodes
}

// NewRuleSet wraps an already populated forest
func NewRuleSet(f *forest.Forest, allowSet, blockSet string) *RuleSet {
	return &RuleSet{
		Forest:   f,
		AllowSet: allowSet,
		BlockSet: blockSet,
		sets:     make(map[string]dataType.IPSetRule),
	}
}
