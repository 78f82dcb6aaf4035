package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SettingsDefaults seeds the "my company" settings row the first time it is read.
type SettingsDefaults struct {
	Name                string `mapstructure:"name"`
	Address             string `mapstructure:"address"`
	Email               string `mapstructure:"email"`
	Phone               string `mapstructure:"phone"`
	LogoURL             string `mapstructure:"logoUrl"`
	Website             string `mapstructure:"website"`
	QuotationPrefix     string `mapstructure:"quotationPrefix"`
	QuotationNextNumber int64  `mapstructure:"quotationNextNumber"`
}

func DefaultSettingsDefaults() SettingsDefaults {
	return SettingsDefaults{
		Name:                "QuoteFlow Solutions",
		Address:             "456 App Business Park, Suite 100, Tech City, TX 75001",
		Email:               "support@quoteflow.example.com",
		Phone:               "+1-800-555-FLOW",
		LogoURL:             "https://placehold.co/150x50.png?text=QuoteFlow",
		Website:             "https://example.com",
		QuotationPrefix:     "QTN-",
		QuotationNextNumber: 1,
	}
}

type SettingsDefaultsHolder struct {
	current atomic.Value // holds SettingsDefaults
}

// NewStaticSettingsDefaults returns a holder that never reloads.
func NewStaticSettingsDefaults(defaults SettingsDefaults) *SettingsDefaultsHolder {
	holder := &SettingsDefaultsHolder{}
	holder.current.Store(defaults)
	return holder
}

func NewSettingsDefaultsHolder(cfg Config, log *zap.Logger) (*SettingsDefaultsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("settings.defaults")

	v := viper.New()
	if cfg.SettingsDefaultsPath != "" {
		if _, err := os.Stat(cfg.SettingsDefaultsPath); err != nil {
			return nil, fmt.Errorf("settings defaults file: %w", err)
		}
		v.SetConfigFile(cfg.SettingsDefaultsPath)
	} else {
		v.SetConfigName("quoteflow")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/quoteflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("QUOTEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettingsDefaults()
	v.SetDefault("settings.name", defaults.Name)
	v.SetDefault("settings.address", defaults.Address)
	v.SetDefault("settings.email", defaults.Email)
	v.SetDefault("settings.phone", defaults.Phone)
	v.SetDefault("settings.logoUrl", defaults.LogoURL)
	v.SetDefault("settings.website", defaults.Website)
	v.SetDefault("settings.quotationPrefix", defaults.QuotationPrefix)
	v.SetDefault("settings.quotationNextNumber", defaults.QuotationNextNumber)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	loaded, err := decodeSettingsDefaults(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticSettingsDefaults(loaded)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeSettingsDefaults(v)
		if err != nil {
			log.Warn("settings defaults reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("settings defaults reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *SettingsDefaultsHolder) Get() SettingsDefaults {
	if h == nil {
		return DefaultSettingsDefaults()
	}
	value, ok := h.current.Load().(SettingsDefaults)
	if !ok {
		return DefaultSettingsDefaults()
	}
	return value
}

// decodeSettingsDefaults goes through Unmarshal rather than UnmarshalKey so
// keys missing from the file still pick up their defaults.
func decodeSettingsDefaults(v *viper.Viper) (SettingsDefaults, error) {
	var doc struct {
		Settings SettingsDefaults `mapstructure:"settings"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return SettingsDefaults{}, err
	}
	if err := validateSettingsDefaults(doc.Settings); err != nil {
		return SettingsDefaults{}, err
	}
	return doc.Settings, nil
}

func validateSettingsDefaults(cfg SettingsDefaults) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return errors.New("settings.name cannot be empty")
	}
	if cfg.QuotationNextNumber <= 0 {
		return errors.New("settings.quotationNextNumber must be positive")
	}
	return nil
}
