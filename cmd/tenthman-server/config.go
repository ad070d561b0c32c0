package main

import (
	"errors"
	"strings"
)

type Config struct {
	Addr    string
	Model   string
	BaseURL string
	APIKey  string
	Verbose bool
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("missing -addr")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("missing -model")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Addr:  ":8080",
		Model: "gpt-5-mini",
	}
}
