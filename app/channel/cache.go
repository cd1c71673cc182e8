package channel

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type SubscriptionCache struct {
	channelsDir string
	cache       map[string]*Subscription
	mu          sync.RWMutex
}

func NewSubscriptionCache(channelsDir string) *SubscriptionCache {
	return &SubscriptionCache{
		channelsDir: channelsDir,
		cache:       make(map[string]*Subscription),
	}
}

func (sc *SubscriptionCache) Run() error {
	if _, err := os.Stat(sc.channelsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(sc.channelsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		subName := fileName[:len(fileName)-4] // Remove .yml extension

		sub, err := sc.LoadSubscription(subName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Subscription loaded", "channel", subName, "enabled", sub.Settings.Enabled, "sync_interval", sub.Settings.SyncInterval)
	}

	return nil
}

func (sc *SubscriptionCache) LoadSubscription(subName string) (*Subscription, error) {
	subFile := filepath.Join(sc.channelsDir, subName+".yml")

	data, err := os.ReadFile(subFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sub Subscription
	if err := yaml.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	sub.Name = subName

	if sub.Settings.SyncInterval == 0 {
		sub.Settings.SyncInterval = 3600
	}
	if sub.Settings.MaxVideos == 0 {
		sub.Settings.MaxVideos = 3
	}

	if err := sc.validateSubscription(&sub); err != nil {
		return nil, fmt.Errorf("invalid subscription %s: %w", subFile, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache[sub.Name] = &sub

	return &sub, nil
}

func (sc *SubscriptionCache) GetSubscription(subName string) (*Subscription, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sub, ok := sc.cache[subName]
	if !ok {
		return nil, fmt.Errorf("subscription with name '%s' not found", subName)
	}
	return sub, nil
}

func (sc *SubscriptionCache) GetSubscriptions() map[string]*Subscription {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	subsCopy := make(map[string]*Subscription, len(sc.cache))
	for k, v := range sc.cache {
		subsCopy[k] = v
	}
	return subsCopy
}

func (sc *SubscriptionCache) GetEnabledSubscriptions() map[string]*Subscription {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	enabled := make(map[string]*Subscription)
	for k, v := range sc.cache {
		if v.Settings.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (sc *SubscriptionCache) GetSubscriptionCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

func (sc *SubscriptionCache) validateSubscription(sub *Subscription) error {
	if sub == nil {
		return fmt.Errorf("subscription is nil")
	}

	requiredFields := map[string]string{
		"channel_id": sub.ChannelID,
		"user":       sub.User,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	nonNegativeFields := map[string]int{
		"sync interval": sub.Settings.SyncInterval,
		"max videos":    sub.Settings.MaxVideos,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}
