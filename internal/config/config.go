// Package config loads the inquirybot configuration: the reusable core
// sections plus database, inquiry and health settings.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/inquirybot/core/config"
	"github.com/m3rciful/inquirybot/core/database"
)

// Defaults applied by Normalize.
const (
	DefaultConfirmationPhrase = "bean juice"
	DefaultPreviewLength      = 500
	DefaultScanWindow         = 10
	MaxScanWindow             = 10
	DefaultSessionTTL         = 30 * time.Minute
	DefaultSweepInterval      = time.Minute
	DefaultSubmitTimeout      = 20 * time.Second
)

// InquiryConfig configures the import wizard and its collaborators.
type InquiryConfig struct {
	ForumChatID        int64  `yaml:"forum_chat_id" envconfig:"INQUIRY_FORUM_CHAT_ID"`
	StaffRoleChatID    int64  `yaml:"staff_role_chat_id" envconfig:"INQUIRY_STAFF_ROLE_CHAT_ID"`
	StaffChannelID     int64  `yaml:"staff_channel_id" envconfig:"INQUIRY_STAFF_CHANNEL_ID"`
	EndpointURL        string `yaml:"endpoint_url" envconfig:"INQUIRY_ENDPOINT_URL"`
	ConfirmationPhrase string `yaml:"confirmation_phrase" envconfig:"INQUIRY_CONFIRMATION_PHRASE"`
	PreviewLength      int    `yaml:"preview_length" envconfig:"INQUIRY_PREVIEW_LENGTH"`
	// ScanWindow is how many posts after the first are searched for images.
	ScanWindow    int           `yaml:"scan_window" envconfig:"INQUIRY_SCAN_WINDOW"`
	SessionTTL    time.Duration `yaml:"session_ttl" envconfig:"INQUIRY_SESSION_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"INQUIRY_SWEEP_INTERVAL"`
	SubmitTimeout time.Duration `yaml:"submit_timeout" envconfig:"INQUIRY_SUBMIT_TIMEOUT"`
	// MediaBaseURL is the public address of the health server. When set,
	// image URLs point at its /media endpoint instead of the Bot API.
	MediaBaseURL string `yaml:"media_base_url" envconfig:"INQUIRY_MEDIA_BASE_URL"`
}

// HealthConfig configures the HTTP server for /healthz and /media.
type HealthConfig struct {
	// Listen is a host:port; empty disables the server.
	Listen string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database database.Config `yaml:"database"`
	Inquiry  InquiryConfig   `yaml:"inquiry"`
	Health   HealthConfig    `yaml:"health"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays .env and the environment, then validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return err
	}
	if err := cfg.Inquiry.Normalize(); err != nil {
		return err
	}
	cfg.Health.Listen = strings.TrimSpace(cfg.Health.Listen)
	if cfg.Inquiry.MediaBaseURL != "" && cfg.Health.Listen == "" {
		return fmt.Errorf("health.listen is required when inquiry.media_base_url is set")
	}
	return nil
}

// Normalize validates the inquiry section and fills defaults.
func (c *InquiryConfig) Normalize() error {
	if c.ForumChatID == 0 {
		return fmt.Errorf("inquiry.forum_chat_id is required")
	}
	if c.StaffRoleChatID == 0 {
		return fmt.Errorf("inquiry.staff_role_chat_id is required")
	}
	c.EndpointURL = strings.TrimSpace(c.EndpointURL)
	if err := checkHTTPURL(c.EndpointURL); err != nil {
		return fmt.Errorf("inquiry.endpoint_url: %w", err)
	}
	c.MediaBaseURL = strings.TrimRight(strings.TrimSpace(c.MediaBaseURL), "/")
	if c.MediaBaseURL != "" {
		if err := checkHTTPURL(c.MediaBaseURL); err != nil {
			return fmt.Errorf("inquiry.media_base_url: %w", err)
		}
	}

	if strings.TrimSpace(c.ConfirmationPhrase) == "" {
		c.ConfirmationPhrase = DefaultConfirmationPhrase
	}
	if c.PreviewLength <= 0 {
		c.PreviewLength = DefaultPreviewLength
	}
	if c.ScanWindow < 0 || c.ScanWindow > MaxScanWindow {
		return fmt.Errorf("inquiry.scan_window must be between 0 and %d", MaxScanWindow)
	}
	if c.ScanWindow == 0 {
		c.ScanWindow = DefaultScanWindow
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.SessionTTL <= c.SubmitTimeout {
		return fmt.Errorf("inquiry.session_ttl (%s) must exceed inquiry.submit_timeout (%s)", c.SessionTTL, c.SubmitTimeout)
	}
	return nil
}

func checkHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}
