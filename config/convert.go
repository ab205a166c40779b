package config

import (
	"github.com/BaSui01/trackflow/providers"
	"github.com/BaSui01/trackflow/runid"
	"github.com/BaSui01/trackflow/types"
)

// 配置节到各组件运行时类型的转换。config 只依赖叶子包,
// 组装逻辑(按 Provider 选择客户端等)在 quick 包。

// ToRunConfig 转换为 types.RunConfig
func (r RunConfig) ToRunConfig() types.RunConfig {
	return types.RunConfig{
		Project: r.Project,
		Entity:  r.Entity,
		Group:   r.Group,
		Tags:    r.Tags,
	}
}

// ToStoreConfig 转换为 runid.StoreConfig
func (s StoreConfig) ToStoreConfig() runid.StoreConfig {
	return runid.StoreConfig{
		Type: runid.StoreType(s.Type),
		Redis: runid.RedisConfig{
			Addr:      s.Redis.Addr,
			Password:  s.Redis.Password,
			DB:        s.Redis.DB,
			PoolSize:  s.Redis.PoolSize,
			KeyPrefix: s.Redis.KeyPrefix,
		},
	}
}

// ToProviderConfig 转换为 providers.WandBConfig
func (w WandBConfig) ToProviderConfig() providers.WandBConfig {
	return providers.WandBConfig{
		APIKey:  w.APIKey,
		BaseURL: w.BaseURL,
		Entity:  w.Entity,
		Timeout: w.Timeout,
	}
}

// ToProviderConfig 转换为 providers.MLflowConfig
func (m MLflowConfig) ToProviderConfig() providers.MLflowConfig {
	return providers.MLflowConfig{
		TrackingURI: m.TrackingURI,
		Token:       m.Token,
		Timeout:     m.Timeout,
	}
}

// ToProviderConfig 转换为 providers.OfflineConfig
func (o OfflineConfig) ToProviderConfig() providers.OfflineConfig {
	return providers.OfflineConfig{
		Dir: o.Dir,
	}
}
