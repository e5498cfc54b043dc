package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		// 如果用户指定了文件，直接使用
		viper.SetConfigFile(cfgFile)
	} else {
		// 否则按优先级搜索
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：
		// 1. 当前目录
		viper.AddConfigPath(".")
		// 2. 当前目录下的 .dupidx
		viper.AddConfigPath(".dupidx")
		// 3. 用户主目录下的 .dupidx
		viper.AddConfigPath(filepath.Join(home, ".dupidx"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (DUPIDX_DATABASE_HOST 等)
	viper.SetEnvPrefix("DUPIDX")
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 如果只是没找到配置文件，但可能有环境变量，不一定算错
		// 但如果是配置文件格式错，那就是错
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("⚠️  No config file found, using defaults/env vars")
		} else {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	} else {
		fmt.Println("🔧 Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	// 数据库默认值：本机 sqlite，开箱即用
	wd, _ := os.Getwd()
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", filepath.Join(wd, "dupidx.sqlite3"))
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// 流来源默认值
	viper.SetDefault("source.type", "disk")
	viper.SetDefault("source.path", filepath.Join(wd, "streams"))
	viper.SetDefault("source.s3.region", "us-east-1")

	// seen-cache 默认关闭
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	viper.SetDefault("cache.ttl", 24*time.Hour)
}
