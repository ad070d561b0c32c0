package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/nick-rui/tenth-man/tenthman"
)

func TestStripMention(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"<@U123ABC> what do you think?", " what do you think?"},
		{"no mention here", "no mention here"},
		{"<@U1> and <@U2> both", " and  both"},
	}
	for _, tc := range cases {
		if got := stripMention(tc.in); got != tc.want {
			t.Fatalf("stripMention(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestMessageRole(t *testing.T) {
	t.Parallel()

	const botID = "U999BOT"

	cases := []struct {
		name string
		msg  slack.Message
		role string
		ok   bool
	}{
		{
			name: "own_bot_message",
			msg:  slack.Message{Msg: slack.Msg{User: botID, Text: "critique"}},
			role: tenthman.RoleAssistant,
			ok:   true,
		},
		{
			name: "other_bot_by_subtype",
			msg:  slack.Message{Msg: slack.Msg{SubType: "bot_message", Text: "hi"}},
			role: tenthman.RoleAssistant,
			ok:   true,
		},
		{
			name: "other_bot_by_bot_id",
			msg:  slack.Message{Msg: slack.Msg{BotID: "B42", Text: "hi"}},
			role: tenthman.RoleAssistant,
			ok:   true,
		},
		{
			name: "human",
			msg:  slack.Message{Msg: slack.Msg{User: "U123", Text: "idea"}},
			role: tenthman.RoleUser,
			ok:   true,
		},
		{
			name: "channel_join_skipped",
			msg:  slack.Message{Msg: slack.Msg{User: "U123", SubType: "channel_join"}},
			ok:   false,
		},
		{
			name: "no_user_no_bot_skipped",
			msg:  slack.Message{Msg: slack.Msg{Text: "orphan"}},
			ok:   false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			role, ok := messageRole(tc.msg, botID)
			if ok != tc.ok || role != tc.role {
				t.Fatalf("role=%q ok=%v want role=%q ok=%v", role, ok, tc.role, tc.ok)
			}
		})
	}
}

func TestToChatHistory(t *testing.T) {
	t.Parallel()

	const botID = "U999BOT"
	msgs := []slack.Message{
		{Msg: slack.Msg{User: "U1", Text: "<@U999BOT> should we rewrite in rust?"}},
		{Msg: slack.Msg{User: botID, Text: statusMessage}},
		{Msg: slack.Msg{User: botID, Text: "What problem does the rewrite solve?"}},
		{Msg: slack.Msg{User: "U2", SubType: "channel_join", Text: "U2 joined"}},
		{Msg: slack.Msg{User: "U2", Text: "   "}},
		{Msg: slack.Msg{User: "U1", Text: "performance, mostly"}},
	}

	got := toChatHistory(msgs, botID)
	want := []tenthman.ChatTurn{
		{Role: tenthman.RoleUser, Content: "should we rewrite in rust?"},
		{Role: tenthman.RoleAssistant, Content: "What problem does the rewrite solve?"},
		{Role: tenthman.RoleUser, Content: "performance, mostly"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestBuildReply(t *testing.T) {
	t.Parallel()

	t.Run("plain_reply", func(t *testing.T) {
		t.Parallel()
		got := buildReply(tenthman.Analysis{FinalText: "Weak evidence."})
		if got != "Weak evidence." {
			t.Fatalf("got=%q", got)
		}
	})

	t.Run("scrubs_status_message", func(t *testing.T) {
		t.Parallel()
		got := buildReply(tenthman.Analysis{FinalText: statusMessage + " Weak evidence."})
		if got != "Weak evidence." {
			t.Fatalf("got=%q", got)
		}
	})

	t.Run("empty_becomes_placeholder", func(t *testing.T) {
		t.Parallel()
		got := buildReply(tenthman.Analysis{FinalText: "  "})
		if got != emptyReply {
			t.Fatalf("got=%q", got)
		}
	})

	t.Run("degraded_gets_notice", func(t *testing.T) {
		t.Parallel()
		got := buildReply(tenthman.Analysis{FinalText: "Still skeptical.", DegradedMode: true})
		if !strings.HasPrefix(got, tenthman.DegradedNotice) {
			t.Fatalf("got=%q", got)
		}
		if !strings.Contains(got, "Still skeptical.") {
			t.Fatalf("got=%q", got)
		}
	})

	t.Run("failure_message_gets_no_notice", func(t *testing.T) {
		t.Parallel()
		failure := "Tenth Man failed to score this proposal: boom"
		got := buildReply(tenthman.Analysis{FinalText: failure, DegradedMode: true})
		if strings.Contains(got, tenthman.DegradedNotice) {
			t.Fatalf("got=%q", got)
		}
		if got != failure {
			t.Fatalf("got=%q", got)
		}
	})

	t.Run("appends_top_three_sources", func(t *testing.T) {
		t.Parallel()
		got := buildReply(tenthman.Analysis{
			FinalText: "Counterpoint.",
			Sources:   []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com"},
		})
		want := "Counterpoint.\n\nSources:\n1. https://a.com\n2. https://b.com\n3. https://c.com"
		if got != want {
			t.Fatalf("got=%q want=%q", got, want)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := defaultConfig()
	valid.BotToken = "xoxb-test"
	valid.AppToken = "xapp-test"
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing_bot_token", func(c *Config) { c.BotToken = "" }},
		{"wrong_bot_prefix", func(c *Config) { c.BotToken = "xapp-test" }},
		{"missing_app_token", func(c *Config) { c.AppToken = "" }},
		{"wrong_app_prefix", func(c *Config) { c.AppToken = "xoxb-test" }},
		{"missing_model", func(c *Config) { c.Model = "" }},
		{"zero_history_limit", func(c *Config) { c.HistoryLimit = 0 }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
