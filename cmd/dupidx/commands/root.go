package commands

import (
	"fmt"
	"os"

	"dupindex/pkg/app"
	"dupindex/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// 全局应用实例，供子命令使用
	IDX *app.App
)

var rootCmd = &cobra.Command{
	Use:   "dupidx",
	Short: "dupidx: cross-package file duplication index",
	Long: `dupidx indexes the file contents of a package corpus and finds
duplicate and near-duplicate content across package boundaries,
including payloads stored under different container encodings
(gzip levels, PNG recompression).`,
	// 【关键】PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 统一初始化 App (sqlite 库不存在会自动建，没有单独的 init 命令)
		var err error
		IDX, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize dupidx: %w", err)
		}
		return nil
	},
	// 存储端口开在 PreRun，关在 PostRun，生命周期对称
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return nil
		}
		return IDX.Close()
	},
}

// Execute 是入口
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// 在初始化时，加载配置
	cobra.OnInitialize(initConfig)

	// 1. 定义全局参数 --config
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dupidx/config.yaml)")

	// 2. 常用配置项同时开放成 flag，绑定到 Viper
	// 这样用户既可以在 yaml 里写，也可以用命令行覆盖
	rootCmd.PersistentFlags().String("db", "", "sqlite database path")
	rootCmd.PersistentFlags().String("streams", "", "directory holding package record streams")
	for flag, key := range map[string]string{
		"db":      "database.path",
		"streams": "source.path",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Println("Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}
