package main

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	BotToken     string
	AppToken     string
	Model        string
	BaseURL      string
	APIKey       string
	HistoryLimit int
	Verbose      bool
}

func (c Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("missing SLACK_BOT_TOKEN")
	}
	if !strings.HasPrefix(c.BotToken, "xoxb-") {
		return fmt.Errorf("SLACK_BOT_TOKEN must start with %q", "xoxb-")
	}
	if c.AppToken == "" {
		return errors.New("missing SLACK_APP_TOKEN")
	}
	if !strings.HasPrefix(c.AppToken, "xapp-") {
		return fmt.Errorf("SLACK_APP_TOKEN must start with %q", "xapp-")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("missing -model")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history-limit must be > 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Model:        "gpt-5-mini",
		HistoryLimit: 200,
	}
}
