package config

import (
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	ListenAddr string        `yaml:"listen_addr"`
	JwtTTL     time.Duration `yaml:"jwt_ttl"`
	LogLevel   string        `yaml:"log_level"`
	LogJSON    bool          `yaml:"log_json"`

	// Moderation: when active, new content defaults to pending approval
	// for actors who only hold the unapproved-variant capabilities.
	PostModerationActive bool `yaml:"post_moderation_active"`

	MaxMessageLength int  `yaml:"max_message_length"`
	StickyEnabled    bool `yaml:"sticky_enabled"`
	PollsEnabled     bool `yaml:"polls_enabled"`

	// Word replacements applied when text is shown back: previews and
	// display. Stored rows keep the raw text.
	CensoredWords map[string]string `yaml:"censored_words"`

	// Guests may post without an email address when set.
	GuestPostNoEmail bool `yaml:"guest_post_no_email"`

	// Minutes after which editing own posts is forbidden entirely (0 = off).
	EditDisableMinutes int `yaml:"edit_disable_minutes"`
	// Seconds during which an author's own edit leaves no modified-by audit.
	EditGraceSeconds int `yaml:"edit_grace_seconds"`

	AttachmentsEnabled       bool          `yaml:"attachments_enabled"`
	MaxAttachmentsPerMessage int           `yaml:"max_attachments_per_message"`
	MaxAttachmentSizeBytes   int64         `yaml:"max_attachment_size_bytes"`
	MaxTotalAttachmentSize   int64         `yaml:"max_total_attachment_size"`
	AllowedImageMimeTypes    []string      `yaml:"allowed_image_mime_types"`
	AllowedVideoMimeTypes    []string      `yaml:"allowed_video_mime_types"`
	StagingTTL               time.Duration `yaml:"staging_ttl"`
	StagingDir               string        `yaml:"staging_dir"`
	AttachmentDir            string        `yaml:"attachment_dir"`

	CalendarEnabled bool `yaml:"calendar_enabled"`
	CalendarMaxSpan int  `yaml:"calendar_max_span"`

	SearchEnabled bool   `yaml:"search_enabled"`
	SearchIndex   string `yaml:"search_index"`

	// Single-use submission tokens expire after this long.
	SubmissionTokenTTL time.Duration `yaml:"submission_token_ttl"`
}

type Private struct {
	Pg     Pg     `yaml:"pg"`
	Redis  Redis  `yaml:"redis"`
	Meili  Meili  `yaml:"meili"`
	JwtKey string `yaml:"jwt_key"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
	InitPath string `yaml:"init_path"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Meili struct {
	Host   string `yaml:"host"`
	ApiKey string `yaml:"api_key"`
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	return &Config{public, private}
}
