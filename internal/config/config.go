package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置（支持 include 列表），叠加环境变量后补默认值并校验。
// include 中的文件先于引用它的文件合并，后合并者覆盖先合并者。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	files, err := newIncludeWalker().walk(root)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	setKeys := make(keySet)
	for _, k := range v.AllKeys() {
		setKeys.mark(k)
	}
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	markEnvKeys(setKeys)

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	// include 只影响文件顺序，不进入最终配置。
	settings := tmp.AllSettings()
	delete(settings, "include")
	return v.MergeConfigMap(settings)
}

// markEnvKeys 环境变量覆盖的键视为已显式设置，不再套默认值。
func markEnvKeys(keys keySet) {
	for key, names := range envBindings {
		for _, name := range names {
			if _, ok := os.LookupEnv(name); ok {
				keys.mark(key)
				break
			}
		}
	}
}

// includeWalker 深度优先展开 include，visiting 用于发现环。
type includeWalker struct {
	visiting map[string]bool
	done     map[string]bool
	order    []string
}

func newIncludeWalker() *includeWalker {
	return &includeWalker{visiting: map[string]bool{}, done: map[string]bool{}}
}

func (w *includeWalker) walk(path string) ([]string, error) {
	if err := w.visit(filepath.Clean(path)); err != nil {
		return nil, err
	}
	return w.order, nil
}

func (w *includeWalker) visit(path string) error {
	switch {
	case w.visiting[path]:
		return fmt.Errorf("include cycle detected: %s", path)
	case w.done[path]:
		return nil
	}
	w.visiting[path] = true
	includes, err := readIncludes(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(filepath.Clean(inc)); err != nil {
			return err
		}
	}
	delete(w.visiting, path)
	w.done[path] = true
	w.order = append(w.order, path)
	return nil
}

func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	raw := v.Get("include")
	if raw == nil {
		return nil, nil
	}
	if _, ok := raw.(string); ok {
		return nil, fmt.Errorf("include must be a string array")
	}
	items, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, fmt.Errorf("include must be a string array: %w", err)
	}
	out := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
