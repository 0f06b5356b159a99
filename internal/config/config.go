package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Listen  string  `yaml:"listen"`
	Logger  Logger  `yaml:"logger"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Redis   Redis   `yaml:"redis"`
	Rooms   Rooms   `yaml:"rooms"`
	Admin   Admin   `yaml:"admin"`
	CORS    CORS    `yaml:"cors"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Storage struct {
	Database   string `yaml:"database"`
	UserAvatar string `yaml:"user_avatar"`
}

type Auth struct {
	JWT   JWT   `yaml:"jwt"`
	WCA   WCA   `yaml:"wca"`
	Local Local `yaml:"local"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

// WCA holds the OAuth application registered with the World Cube Association.
type WCA struct {
	URL                 string `yaml:"url"`
	ClientID            string `yaml:"client_id"`
	ClientSecret        string `yaml:"client_secret"`
	RedirectURI         string `yaml:"redirect_uri"`
	FrontendCallbackURL string `yaml:"frontend_callback_url"`
}

// Local defines configuration for username/password authentication,
// meant for development setups without a registered WCA application.
type Local struct {
	Enabled bool `yaml:"enabled"`
}

// Redis enables the room cache when Addr is non-empty.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Rooms struct {
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Rooms.SweepIntervalMinutes <= 0 {
		cfg.Rooms.SweepIntervalMinutes = 5
	}

	return &cfg, nil
}
