package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Dump 以 YAML 形式输出生效配置，api_key 只保留末尾 4 位。
func Dump(c *Config) (string, error) {
	if c == nil {
		return "", fmt.Errorf("config is nil")
	}
	masked := *c
	masked.LLM.APIKey = maskSecret(c.LLM.APIKey)
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "toml", Result: &out})
	if err != nil {
		return "", err
	}
	if err := dec.Decode(masked); err != nil {
		return "", fmt.Errorf("flatten config failed: %w", err)
	}
	raw, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
