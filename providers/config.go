package providers

import "time"

// WandBConfig Weights & Biases Provider 配置
type WandBConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Entity  string        `json:"entity,omitempty" yaml:"entity,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// MLflowConfig MLflow Provider 配置
type MLflowConfig struct {
	TrackingURI string        `json:"tracking_uri" yaml:"tracking_uri"`
	Token       string        `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OfflineConfig 离线 Provider 配置
type OfflineConfig struct {
	Dir string `json:"dir" yaml:"dir"` // 运行数据根目录
}
