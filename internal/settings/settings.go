package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

const DefaultKey = "bedstatus:settings"

// MinAutoRefreshInterval seconds
const MinAutoRefreshInterval = 5

// Settings 阈值与开关
type Settings struct {
	CheckIntervalOccupied  float64 `json:"check_interval_occupied"`  // hours
	RecentlyFreedThreshold float64 `json:"recently_freed_threshold"` // hours
	SLAThreshold           int     `json:"sla_threshold"`            // minutes
	AutoRefreshInterval    int     `json:"auto_refresh_interval"`    // seconds
	SoundEnabled           bool    `json:"sound_enabled"`
	NotificationsEnabled   bool    `json:"notifications_enabled"`
}

func Defaults() Settings {
	return Settings{
		CheckIntervalOccupied:  4,
		RecentlyFreedThreshold: 1,
		SLAThreshold:           60,
		AutoRefreshInterval:    30,
		SoundEnabled:           true,
		NotificationsEnabled:   true,
	}
}

func (s Settings) Thresholds() alerting.Thresholds {
	return alerting.Thresholds{
		CheckIntervalOccupiedHours:  s.CheckIntervalOccupied,
		RecentlyFreedThresholdHours: s.RecentlyFreedThreshold,
	}
}

func (s Settings) SLAThresholdDuration() time.Duration {
	return time.Duration(s.SLAThreshold) * time.Minute
}

func (s Settings) RefreshInterval() time.Duration {
	return time.Duration(s.AutoRefreshInterval) * time.Second
}

// Patch partial update; nil fields are kept.
type Patch struct {
	CheckIntervalOccupied  *float64 `json:"check_interval_occupied,omitempty"`
	RecentlyFreedThreshold *float64 `json:"recently_freed_threshold,omitempty"`
	SLAThreshold           *int     `json:"sla_threshold,omitempty"`
	AutoRefreshInterval    *int     `json:"auto_refresh_interval,omitempty"`
	SoundEnabled           *bool    `json:"sound_enabled,omitempty"`
	NotificationsEnabled   *bool    `json:"notifications_enabled,omitempty"`
}

var ErrInvalid = errors.New("invalid settings")

func (p Patch) apply(s Settings) (Settings, error) {
	if p.CheckIntervalOccupied != nil {
		if *p.CheckIntervalOccupied <= 0 {
			return s, fmt.Errorf("%w: check_interval_occupied must be positive", ErrInvalid)
		}
		s.CheckIntervalOccupied = *p.CheckIntervalOccupied
	}
	if p.RecentlyFreedThreshold != nil {
		if *p.RecentlyFreedThreshold < 0 {
			return s, fmt.Errorf("%w: recently_freed_threshold must not be negative", ErrInvalid)
		}
		s.RecentlyFreedThreshold = *p.RecentlyFreedThreshold
	}
	if p.SLAThreshold != nil {
		if *p.SLAThreshold < 0 {
			return s, fmt.Errorf("%w: sla_threshold must not be negative", ErrInvalid)
		}
		s.SLAThreshold = *p.SLAThreshold
	}
	if p.AutoRefreshInterval != nil {
		if *p.AutoRefreshInterval < MinAutoRefreshInterval {
			return s, fmt.Errorf("%w: auto_refresh_interval must be at least 5 seconds", ErrInvalid)
		}
		s.AutoRefreshInterval = *p.AutoRefreshInterval
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.NotificationsEnabled != nil {
		s.NotificationsEnabled = *p.NotificationsEnabled
	}
	return s, nil
}

// Listener is called after every successful Update with the new settings.
type Listener func(Settings)

// Provider 设置提供者：内存为准，变更写入 KV 并通知订阅者
type Provider struct {
	mu        sync.RWMutex
	current   Settings
	listeners map[int]Listener
	nextID    int

	kv     store.KV
	key    string
	logger *zap.Logger
}

func NewProvider(kv store.KV, key string, logger *zap.Logger) *Provider {
	if key == "" {
		key = DefaultKey
	}
	return &Provider{
		current:   Defaults(),
		listeners: map[int]Listener{},
		kv:        kv,
		key:       key,
		logger:    logger,
	}
}

// Load reads persisted settings; a miss or unreadable value keeps the defaults.
func (p *Provider) Load(ctx context.Context) Settings {
	if p.kv == nil {
		return p.Get()
	}
	raw, err := p.kv.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			p.logger.Warn("Failed to load settings, using defaults", zap.Error(err))
		}
		return p.Get()
	}
	loaded := Defaults()
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		p.logger.Warn("Stored settings are unreadable, using defaults", zap.Error(err))
		return p.Get()
	}
	loaded = sanitize(loaded, p.logger)
	p.mu.Lock()
	p.current = loaded
	p.mu.Unlock()
	return loaded
}

// sanitize replaces each stored value that Update would reject with its default.
func sanitize(s Settings, logger *zap.Logger) Settings {
	def := Defaults()
	reset := func(field string) {
		logger.Warn("Stored setting is invalid, using default", zap.String("field", field))
	}
	if s.CheckIntervalOccupied <= 0 {
		reset("check_interval_occupied")
		s.CheckIntervalOccupied = def.CheckIntervalOccupied
	}
	if s.RecentlyFreedThreshold < 0 {
		reset("recently_freed_threshold")
		s.RecentlyFreedThreshold = def.RecentlyFreedThreshold
	}
	if s.SLAThreshold < 0 {
		reset("sla_threshold")
		s.SLAThreshold = def.SLAThreshold
	}
	if s.AutoRefreshInterval < MinAutoRefreshInterval {
		reset("auto_refresh_interval")
		s.AutoRefreshInterval = def.AutoRefreshInterval
	}
	return s
}

func (p *Provider) Get() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Update validates and applies patch. Persistence failures are logged; the in-memory value still changes.
func (p *Provider) Update(ctx context.Context, patch Patch) (Settings, error) {
	p.mu.Lock()
	next, err := patch.apply(p.current)
	if err != nil {
		cur := p.current
		p.mu.Unlock()
		return cur, err
	}
	p.current = next
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	if p.kv != nil {
		if b, err := json.Marshal(next); err == nil {
			if err := p.kv.Set(ctx, p.key, string(b), 0); err != nil {
				p.logger.Warn("Failed to persist settings", zap.Error(err))
			}
		}
	}
	for _, l := range listeners {
		l(next)
	}
	return next, nil
}

// Subscribe registers l and returns a function that removes it.
func (p *Provider) Subscribe(l Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}
