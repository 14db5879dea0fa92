package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings 兼容旧版本部署脚本使用的环境变量名，优先级高于配置文件。
var envBindings = map[string][]string{
	"app.log_level":               {"AGENT_LOG_LEVEL"},
	"agents.count":                {"AGENT_COUNT"},
	"agents.update_interval":      {"UPDATE_INTERVAL"},
	"agents.min_price_change_pct": {"MIN_PRICE_CHANGE_PCT"},
	"agents.decision_cache_ttl":   {"DECISION_CACHE_TTL"},
	"agents.use_ml_fallback":      {"USE_ML_FALLBACK"},
	"feed.ws_url":                 {"WS_URL"},
	"llm.enabled":                 {"ENABLE_LLM"},
	"llm.provider":                {"LLM_PROVIDER"},
	"llm.model":                   {"LLM_MODEL"},
	"llm.api_key":                 {"LLM_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY"},
	"classifier.model_path":       {"ML_MODEL_PATH"},
}

func bindEnv(v *viper.Viper) error {
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("binding env for %s failed: %w", key, err)
		}
	}
	return nil
}

// LoadDotEnv 把 .env 文件中的变量注入进程环境；文件不存在时静默跳过。
// 已存在的环境变量不会被覆盖。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s failed: %w", p, err)
		}
	}
	return nil
}
