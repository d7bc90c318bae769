package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	TTS struct {
		ApiKey   string `yaml:"apiKey"`
		Endpoint string `yaml:"endpoint"`
		VoiceID  string `yaml:"voiceId"`
		Model    string `yaml:"model"`
	} `yaml:"tts"`

	Recovery struct {
		Generation RecoveryPolicy `yaml:"generation"`
		Synthesis  RecoveryPolicy `yaml:"synthesis"`
		Analysis   RecoveryPolicy `yaml:"analysis"`
	} `yaml:"recovery"`

	Debate struct {
		MaxParticipants    int            `yaml:"maxParticipants"`
		IdleTimeoutMinutes int            `yaml:"idleTimeoutMinutes"`
		PhaseDurations     map[string]int `yaml:"phaseDurations"`
	} `yaml:"debate"`
}

// RecoveryPolicy tunes retries and the circuit breaker for one external operation.
type RecoveryPolicy struct {
	MaxRetries            int `yaml:"maxRetries"`
	BreakerThreshold      int `yaml:"breakerThreshold"`
	CooldownSeconds       int `yaml:"cooldownSeconds"`
	AttemptTimeoutSeconds int `yaml:"attemptTimeoutSeconds"`
}

func (p RecoveryPolicy) Cooldown() time.Duration {
	return time.Duration(p.CooldownSeconds) * time.Second
}

func (p RecoveryPolicy) AttemptTimeout() time.Duration {
	return time.Duration(p.AttemptTimeoutSeconds) * time.Second
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Debate.IdleTimeoutMinutes) * time.Minute
}

// LoadConfig reads the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.TTS.Endpoint == "" {
		c.TTS.Endpoint = "https://api.elevenlabs.io"
	}
	if c.TTS.Model == "" {
		c.TTS.Model = "eleven_turbo_v2"
	}
	if c.Debate.MaxParticipants == 0 {
		c.Debate.MaxParticipants = 4
	}
	if c.Debate.IdleTimeoutMinutes == 0 {
		c.Debate.IdleTimeoutMinutes = 30
	}
	applyPolicyDefaults(&c.Recovery.Generation, 3, 4, 45, 30)
	applyPolicyDefaults(&c.Recovery.Synthesis, 3, 3, 45, 30)
	applyPolicyDefaults(&c.Recovery.Analysis, 2, 3, 60, 45)
}

func applyPolicyDefaults(p *RecoveryPolicy, retries, threshold, cooldown, timeout int) {
	if p.MaxRetries == 0 {
		p.MaxRetries = retries
	}
	if p.BreakerThreshold == 0 {
		p.BreakerThreshold = threshold
	}
	if p.CooldownSeconds == 0 {
		p.CooldownSeconds = cooldown
	}
	if p.AttemptTimeoutSeconds == 0 {
		p.AttemptTimeoutSeconds = timeout
	}
}
