// =============================================================================
// 📦 TrackFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Provider:  "offline",
		Run:       DefaultRunConfig(),
		Store:     DefaultStoreConfig(),
		WandB:     DefaultWandBConfig(),
		MLflow:    DefaultMLflowConfig(),
		Offline:   DefaultOfflineConfig(),
		Rollout:   DefaultRolloutConfig(),
		Viewer:    DefaultViewerConfig(),
		Journal:   DefaultJournalConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultRunConfig 返回默认运行元数据
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Project: "default",
	}
}

// DefaultStoreConfig 返回默认存储配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type: "file",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			DB:        0,
			PoolSize:  10,
			KeyPrefix: "trackflow:runid:",
		},
	}
}

// DefaultWandBConfig 返回默认 W&B 配置
func DefaultWandBConfig() WandBConfig {
	return WandBConfig{
		BaseURL: "https://api.wandb.ai",
		Timeout: 30 * time.Second,
	}
}

// DefaultMLflowConfig 返回默认 MLflow 配置
func DefaultMLflowConfig() MLflowConfig {
	return MLflowConfig{
		TrackingURI: "http://localhost:5000",
		Timeout:     30 * time.Second,
	}
}

// DefaultOfflineConfig 返回默认离线配置
func DefaultOfflineConfig() OfflineConfig {
	return OfflineConfig{
		Dir: "trackflow-runs",
	}
}

// DefaultRolloutConfig 返回默认 rollout 保存配置
func DefaultRolloutConfig() RolloutConfig {
	return RolloutConfig{
		Enabled:         false,
		Path:            "rollouts.jsonl",
		SamplesPerBatch: 64,
		SaveEvery:       10,
	}
}

// DefaultViewerConfig 返回默认查看器配置
func DefaultViewerConfig() ViewerConfig {
	return ViewerConfig{
		Addr:         "127.0.0.1:8192",
		PollInterval: 500 * time.Millisecond,
	}
}

// DefaultJournalConfig 返回默认绑定历史配置
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Enabled: true,
		Path:    "trackflow-journal.db",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "console",
		OutputPaths:  []string{"stdout"},
		EnableCaller: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "trackflow",
		SampleRate:   1.0,
	}
}
