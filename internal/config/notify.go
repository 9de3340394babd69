package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NotifyPolicy controls confirmation dispatch: who receives admin copies and
// which email domains are treated as placeholders rather than real customers.
type NotifyPolicy struct {
	AdminRecipients    []string `mapstructure:"adminRecipients"`
	PlaceholderDomains []string `mapstructure:"placeholderDomains"`
	SubjectPrefix      string   `mapstructure:"subjectPrefix"`
}

func DefaultNotifyPolicy() NotifyPolicy {
	return NotifyPolicy{
		AdminRecipients:    []string{"admin@luminacare.ro"},
		PlaceholderDomains: []string{"example.com", "example.org", "test.com", "placeholder.local"},
		SubjectPrefix:      "[LuminaCare]",
	}
}

// IsPlaceholderEmail reports whether the address belongs to a known
// placeholder domain or is syntactically unusable.
func (p NotifyPolicy) IsPlaceholderEmail(address string) bool {
	address = strings.ToLower(strings.TrimSpace(address))
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return true
	}
	domain := address[at+1:]
	for _, d := range p.PlaceholderDomains {
		if domain == strings.ToLower(strings.TrimSpace(d)) {
			return true
		}
	}
	return false
}

type NotifyPolicyHolder struct {
	current atomic.Value // holds NotifyPolicy
}

func NewNotifyPolicyHolder() (*NotifyPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("notify")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/checkout/config")
	v.AddConfigPath("/etc/checkout")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHECKOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultNotifyPolicy()
		v.SetDefault("notify.adminRecipients", defaults.AdminRecipients)
		v.SetDefault("notify.placeholderDomains", defaults.PlaceholderDomains)
		v.SetDefault("notify.subjectPrefix", defaults.SubjectPrefix)
	}

	var policy NotifyPolicy
	if err := v.UnmarshalKey("notify", &policy); err != nil {
		return nil, err
	}
	if err := validateNotifyPolicy(policy); err != nil {
		return nil, err
	}

	holder := &NotifyPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NotifyPolicy
		if err := v.UnmarshalKey("notify", &updated); err != nil {
			log.Printf("[notify-config] reload failed: %v", err)
			return
		}
		if err := validateNotifyPolicy(updated); err != nil {
			log.Printf("[notify-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
	})

	return holder, nil
}

// NewStaticNotifyPolicyHolder wraps a fixed policy with no file watching.
func NewStaticNotifyPolicyHolder(p NotifyPolicy) *NotifyPolicyHolder {
	holder := &NotifyPolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *NotifyPolicyHolder) Current() NotifyPolicy {
	if h == nil {
		return DefaultNotifyPolicy()
	}
	value, ok := h.current.Load().(NotifyPolicy)
	if !ok {
		return DefaultNotifyPolicy()
	}
	return value
}

func (h *NotifyPolicyHolder) Store(p NotifyPolicy) {
	if h == nil {
		return
	}
	h.current.Store(p)
}

func validateNotifyPolicy(p NotifyPolicy) error {
	if len(p.AdminRecipients) == 0 {
		return errors.New("notify policy needs at least one admin recipient")
	}
	for _, r := range p.AdminRecipients {
		if strings.TrimSpace(r) == "" {
			return errors.New("notify policy admin recipient is empty")
		}
	}
	return nil
}
