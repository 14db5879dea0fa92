package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"swarm/internal/logger"
)

// Watch 监听主配置文件，变更后重新走一遍 Load 并回调。
// 解析或校验失败时保留旧配置，只记录错误。
func Watch(path string, onChange func(*Config)) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		logger.Infof("config reloaded (%s)", evt.Name)
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
	return nil
}
