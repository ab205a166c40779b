package runid

import "fmt"

// NewStore creates a new Store based on the configuration
func NewStore(cfg StoreConfig) (Store, error) {
	switch cfg.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeFile, "":
		return NewFileStore(), nil
	case StoreTypeRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported run id store type: %s", cfg.Type)
	}
}
