// pkg/app/app.go
package app

import (
	"context"
	"fmt"

	"dupindex/pkg/aggregator"
	"dupindex/pkg/hashfn"
	"dupindex/pkg/ingester"
	"dupindex/pkg/ingester/cache"
	"dupindex/pkg/meta"
	"dupindex/pkg/source"
	sourcedisk "dupindex/pkg/source/disk"
	sources3 "dupindex/pkg/source/s3"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有所有“单例”服务。存储端口在这里打开一次，Close 时显式关掉，
// 不搞全局连接状态。
type App struct {
	DB         *meta.DB
	Repo       *meta.Repository
	Registry   *hashfn.Registry
	Ingester   *ingester.Ingester
	Aggregator *aggregator.Aggregator
}

// NewApp 是工厂函数，负责组装这一台机器
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	// 1. 元数据库 (存储端口)
	db, err := meta.NewDB(ctx, meta.Config{
		Driver:   viper.GetString("database.driver"),
		Path:     viper.GetString("database.path"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init metadata store: %w", err)
	}
	repo := meta.NewRepository(db)

	// 2. 哈希函数注册表 (封闭表，启动时定死)
	registry := hashfn.Default()

	// 3. 导入管线，按需挂 seen-cache
	ing := ingester.NewIngester(repo, registry)
	if viper.GetBool("cache.enabled") {
		seenCache, err := cache.NewSeenCache(cache.Config{
			RedisURL: viper.GetString("cache.redis_url"),
			TTL:      viper.GetDuration("cache.ttl"),
		})
		if err != nil {
			// 缓存起不来不挡导入，降级为无缓存模式
			fmt.Printf("⚠️  seen-cache disabled: %v\n", err)
		} else {
			ing.WithCache(seenCache)
		}
	}
	if err := ing.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init ingester: %w", err)
	}

	return &App{
		DB:         db,
		Repo:       repo,
		Registry:   registry,
		Ingester:   ing,
		Aggregator: aggregator.NewAggregator(repo),
	}, nil
}

// OpenSource 按配置打开流来源
// 只有 import / backfill 用得到，查询命令不碰它，所以做成惰性的
func (a *App) OpenSource(ctx context.Context) (source.Source, error) {
	switch kind := viper.GetString("source.type"); kind {
	case "disk":
		src, err := sourcedisk.NewAdapter(viper.GetString("source.path"))
		if err != nil {
			return nil, fmt.Errorf("failed to init disk source: %w", err)
		}
		return src, nil
	case "s3":
		src, err := sources3.NewAdapter(ctx, sources3.Config{
			Endpoint:        viper.GetString("source.s3.endpoint"),
			Region:          viper.GetString("source.s3.region"),
			Bucket:          viper.GetString("source.s3.bucket"),
			Prefix:          viper.GetString("source.s3.prefix"),
			AccessKeyID:     viper.GetString("source.s3.access_key_id"),
			SecretAccessKey: viper.GetString("source.s3.secret_access_key"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init s3 source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source type: %q", kind)
	}
}

// Close 释放存储端口
func (a *App) Close() error {
	return a.DB.Close()
}
