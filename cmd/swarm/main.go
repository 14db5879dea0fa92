package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"swarm/internal/app"
	"swarm/internal/config"
	"swarm/internal/logger"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath, envPath string
	root := &cobra.Command{
		Use:           "swarm",
		Short:         "Multi-agent trading swarm for the simulated exchange",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envPath); err != nil {
				return fmt.Errorf("读取 .env 失败: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwarm(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath(), "配置文件路径")
	root.PersistentFlags().StringVar(&envPath, "env", ".env", ".env 文件路径")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "启动 agent 集群",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwarm(cmd.Context(), cfgPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "打印合并默认值与环境变量后的配置（密钥已脱敏）",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "swarm %s\n", version)
		},
	})
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("SWARM_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func runSwarm(parent context.Context, cfgPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return fmt.Errorf("初始化日志文件失败: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLLMWriter(nil)
	if cfg.App.LLMDump {
		f, err := setupLLMLogOutput(cfg.App.LLMLog)
		if err != nil {
			return fmt.Errorf("初始化 LLM 日志失败: %w", err)
		}
		if f != nil {
			defer f.Close()
		}
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableLLMPayloadDump(cfg.App.LLMDump)
	logger.Infof("✓ 配置加载成功（环境=%s，agents=%d+%d）", cfg.App.Env, cfg.Agents.Count, len(cfg.Agents.Roster))

	// 热更新只影响日志级别，集群规模等需要重启生效。
	if err := config.Watch(cfgPath, func(next *config.Config) {
		logger.SetLevel(next.App.LogLevel)
	}); err != nil {
		logger.Warnf("配置热更新未启用: %v", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("运行失败: %w", err)
	}
	logger.Infof("已退出")
	return nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupLLMLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetLLMWriter(f)
	return f, nil
}
