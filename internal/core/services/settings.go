package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/core/ports/driving"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsValidator checks the complete set of stored settings, keyed by
// dotted setting key, as they would be loaded at startup.
type SettingsValidator func(values map[string]any) error

// SettingsService manages the configuration file.
type SettingsService struct {
	configStore driven.ConfigStore
	validate    SettingsValidator
}

// NewSettingsService creates a new settings service. A non-nil validate
// runs after every change; a change that turns a valid file into an invalid
// one is rolled back.
func NewSettingsService(configStore driven.ConfigStore, validate SettingsValidator) *SettingsService {
	return &SettingsService{configStore: configStore, validate: validate}
}

// Get returns the stored value of key.
func (s *SettingsService) Get(key string) (any, bool) {
	return s.configStore.Get(key)
}

// Set parses value according to the key's type, validates it and persists it.
func (s *SettingsService) Set(key, value string) error {
	setting, ok := domain.LookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(setting, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	prev, had := s.configStore.Get(key)
	wasValid := s.check() == nil

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := s.checkChange(key, wasValid); err != nil {
		s.restore(key, prev, had)
		return err
	}
	return nil
}

// Unset removes key from the configuration file so the default applies.
// Keys that are not set return an error wrapping domain.ErrNotFound.
func (s *SettingsService) Unset(key string) error {
	if _, ok := domain.LookupSetting(key); !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	prev, had := s.configStore.Get(key)
	wasValid := s.check() == nil

	if err := s.configStore.Unset(key); err != nil {
		return err
	}
	if err := s.checkChange(key, wasValid); err != nil {
		s.restore(key, prev, had)
		return err
	}
	return nil
}

func (s *SettingsService) check() error {
	if s.validate == nil {
		return nil
	}
	return s.validate(s.configStore.All())
}

// checkChange fails when the file was valid before the change to key and
// is not anymore. Files that were already invalid may be edited freely so
// they can be repaired one key at a time.
func (s *SettingsService) checkChange(key string, wasValid bool) error {
	if !wasValid {
		return nil
	}
	if err := s.check(); err != nil {
		return fmt.Errorf("%w: changing %s would leave the configuration invalid: %w", domain.ErrInvalidInput, key, err)
	}
	return nil
}

// restore puts key back to prev, or removes it when it was not set.
func (s *SettingsService) restore(key string, prev any, had bool) {
	var err error
	if had {
		err = s.configStore.Set(key, prev)
	} else {
		err = s.configStore.Unset(key)
	}
	if err != nil {
		logger.Warn("restore %s: %v", key, err)
	}
}

// List returns every stored key and value.
func (s *SettingsService) List() map[string]any {
	return s.configStore.All()
}

// Known returns the settable keys.
func (s *SettingsService) Known() []domain.Setting {
	return domain.KnownSettings()
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func parseSetting(setting domain.Setting, value string) (any, error) {
	switch setting.Type {
	case domain.SettingInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("want an integer, got %q", value)
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative, got %d", n)
		}
		return n, nil
	case domain.SettingBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("want true or false, got %q", value)
		}
		return b, nil
	case domain.SettingDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("want a duration such as 30s or 5m, got %q", value)
		}
		if d <= 0 {
			return nil, fmt.Errorf("must be positive, got %s", d)
		}
		// Stored as text so the TOML file stays readable.
		return d.String(), nil
	}

	switch setting.Key {
	case "portal_url":
		u, err := url.Parse(value)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			return nil, fmt.Errorf("must be an absolute http(s) URL, got %q", value)
		}
		return strings.TrimRight(value, "/"), nil
	case "credential_mode":
		mode, err := domain.ParseCredentialMode(value)
		if err != nil {
			return nil, err
		}
		return mode.String(), nil
	}
	return value, nil
}
