// Package config loads the sync settings from a .env file and the environment.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const DefaultEnvFile = ".env"

type Config struct {
	LDAP     LDAPConfig     `json:"ldap"`
	DingTalk DingTalkConfig `json:"dingtalk"`
	Sync     SyncConfig     `json:"sync"`
	LogLevel string         `json:"log_level"`
}

type LDAPConfig struct {
	Server         string `json:"server"`
	Port           int    `json:"port"`
	Admin          string `json:"admin"`
	AdminPassword  string `json:"admin_password"`
	RootDN         string `json:"root_dn"`
	UseTLS         bool   `json:"use_tls"`
	PasswordScheme string `json:"password_scheme"`
}

// URL is the ldap:// or ldaps:// address of host on the configured port.
// An empty host means Server.
func (c LDAPConfig) URL(host string) string {
	if host == "" {
		host = c.Server
	}
	scheme := "ldap"
	if c.UseTLS {
		scheme = "ldaps"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

type DingTalkConfig struct {
	AppKey    string        `json:"app_key"`
	AppSecret string        `json:"app_secret"`
	BaseURL   string        `json:"base_url"`
	PageSize  int           `json:"page_size"`
	Timeout   time.Duration `json:"timeout"`
	RetryMax  int           `json:"retry_max"`
}

type SyncConfig struct {
	IDPrefix     string `json:"id_prefix"`
	FetchWorkers int    `json:"fetch_workers"`
	DryRun       bool   `json:"dry_run"`
}

// env maps config keys to the environment variables they are read from.
var env = map[string]string{
	"ldap.server":          "LDAP_SERVER",
	"ldap.port":            "LDAP_PORT",
	"ldap.admin":           "LDAP_ADMIN",
	"ldap.admin_password":  "LDAP_ADMIN_PASSWD",
	"ldap.root_dn":         "ROOT_DN",
	"ldap.use_tls":         "LDAP_USE_TLS",
	"ldap.password_scheme": "LDAP_PASSWORD_SCHEME",
	"dingtalk.app_key":     "DINGDING_APPKEY",
	"dingtalk.app_secret":  "DINGDING_APPSECRET",
	"dingtalk.base_url":    "DINGDING_BASE_URL",
	"dingtalk.page_size":   "DINGDING_PAGE_SIZE",
	"dingtalk.timeout":     "DINGDING_TIMEOUT",
	"dingtalk.retry_max":   "DINGDING_RETRY_MAX",
	"sync.id_prefix":       "SYNC_ID_PREFIX",
	"sync.fetch_workers":   "SYNC_FETCH_WORKERS",
	"sync.dry_run":         "SYNC_DRY_RUN",
	"log_level":            "LOG_LEVEL",
}

// Load reads envFile into the process environment and builds a Config from
// it. An empty envFile means ".env" if present; a named file must exist.
// Variables already set in the environment take precedence over the file.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetDefault("ldap.port", 389)
	v.SetDefault("ldap.root_dn", "dc=example,dc=org")
	v.SetDefault("ldap.use_tls", false)
	v.SetDefault("ldap.password_scheme", "ssha")
	v.SetDefault("dingtalk.base_url", "https://oapi.dingtalk.com")
	v.SetDefault("dingtalk.page_size", 50)
	v.SetDefault("dingtalk.timeout", 10*time.Second)
	v.SetDefault("dingtalk.retry_max", 3)
	v.SetDefault("sync.id_prefix", "dd")
	v.SetDefault("sync.fetch_workers", 1)
	v.SetDefault("sync.dry_run", false)
	v.SetDefault("log_level", "info")

	// Required keys without defaults.
	v.SetDefault("ldap.server", "")
	v.SetDefault("ldap.admin", "")
	v.SetDefault("ldap.admin_password", "")
	v.SetDefault("dingtalk.app_key", "")
	v.SetDefault("dingtalk.app_secret", "")

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, errors.Wrapf(err, "failed to bind %s", name)
		}
	}

	cfg := new(Config)
	err := v.UnmarshalExact(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	cfg.trim()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) error {
	path := envFile
	if path == "" {
		path = DefaultEnvFile
	}

	exists, err := fileExists(path)
	if err != nil {
		return err
	}
	if !exists {
		if envFile != "" {
			return errors.Errorf("env file '%s' doesn't exist", envFile)
		}
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "failed to load env file '%s'", path)
	}
	return nil
}

func (c *Config) trim() {
	c.LDAP.Server = strings.TrimSpace(c.LDAP.Server)
	c.LDAP.Admin = strings.TrimSpace(c.LDAP.Admin)
	c.LDAP.RootDN = strings.TrimSpace(c.LDAP.RootDN)
	c.LDAP.PasswordScheme = strings.ToLower(strings.TrimSpace(c.LDAP.PasswordScheme))
	c.DingTalk.AppKey = strings.TrimSpace(c.DingTalk.AppKey)
	c.DingTalk.AppSecret = strings.TrimSpace(c.DingTalk.AppSecret)
	c.DingTalk.BaseURL = strings.TrimRight(strings.TrimSpace(c.DingTalk.BaseURL), "/")
	c.Sync.IDPrefix = strings.TrimSpace(c.Sync.IDPrefix)
}

// Validate reports the first missing or out-of-range setting.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"LDAP_SERVER", c.LDAP.Server},
		{"LDAP_ADMIN", c.LDAP.Admin},
		{"ROOT_DN", c.LDAP.RootDN},
		{"DINGDING_APPKEY", c.DingTalk.AppKey},
		{"DINGDING_APPSECRET", c.DingTalk.AppSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.Errorf("%s is required", r.name)
		}
	}

	switch {
	case c.LDAP.Port < 1 || c.LDAP.Port > 65535:
		return errors.Errorf("LDAP_PORT %d out of range", c.LDAP.Port)
	case c.LDAP.PasswordScheme != "ssha" && c.LDAP.PasswordScheme != "bcrypt":
		return errors.Errorf("LDAP_PASSWORD_SCHEME must be ssha or bcrypt, got %q", c.LDAP.PasswordScheme)
	case c.DingTalk.PageSize < 1 || c.DingTalk.PageSize > 100:
		return errors.Errorf("DINGDING_PAGE_SIZE must be within 1..100, got %d", c.DingTalk.PageSize)
	case c.DingTalk.Timeout <= 0:
		return errors.Errorf("DINGDING_TIMEOUT must be positive, got %s", c.DingTalk.Timeout)
	case c.DingTalk.RetryMax < 0:
		return errors.Errorf("DINGDING_RETRY_MAX must not be negative, got %d", c.DingTalk.RetryMax)
	case c.Sync.FetchWorkers < 1:
		return errors.Errorf("SYNC_FETCH_WORKERS must be at least 1, got %d", c.Sync.FetchWorkers)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	} else {
		return false, errors.Wrapf(err, "failed to stat file '%s'", path)
	}
}
