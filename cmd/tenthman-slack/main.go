package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/nick-rui/tenth-man/tenthman"
)

// statusMessage is posted immediately on a mention and scrubbed from any
// model output so the bot never quotes its own placeholder back.
const statusMessage = "Consulting the devil..."

const (
	emptyChannelReply = "No usable channel history found to analyze yet."
	emptyReply        = "No response generated."
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	backend, err := tenthman.NewBackend(tenthman.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	analyzer := tenthman.NewAnalyzer(backend, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		log.WithError(err).Fatal("slack auth test failed")
	}
	bot := &bot{
		api:          api,
		analyzer:     analyzer,
		log:          log,
		botUserID:    auth.UserID,
		historyLimit: cfg.HistoryLimit,
	}

	client := socketmode.New(api)
	go func() {
		if err := client.RunContext(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("socket mode stopped")
		}
	}()

	log.WithField("bot_user_id", auth.UserID).Info("tenth-man slack bot running")

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-client.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			if evt.Request != nil {
				client.Ack(*evt.Request)
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			mention, ok := apiEvent.InnerEvent.Data.(*slackevents.AppMentionEvent)
			if !ok {
				continue
			}
			bot.handleMention(ctx, mention)
		}
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use (e.g. gpt-5-mini)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Optional OpenAI-compatible API base URL")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.IntVar(&cfg.HistoryLimit, "history-limit", cfg.HistoryLimit, "Max channel messages fetched per mention")
	fs.BoolVar(&cfg.Verbose, "v", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.AppToken = os.Getenv("SLACK_APP_TOKEN")
	return cfg, nil
}

type bot struct {
	api          *slack.Client
	analyzer     *tenthman.Analyzer
	log          *logrus.Logger
	botUserID    string
	historyLimit int
}

func (b *bot) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	log := b.log.WithFields(logrus.Fields{
		"channel": ev.Channel,
		"user":    ev.User,
	})
	log.Info("mention received")

	b.post(ctx, ev.Channel, statusMessage)

	msgs, err := b.fetchChannelHistory(ctx, ev.Channel)
	if err != nil {
		log.WithError(err).Warn("channel history fetch failed; analyzing the mention alone")
	}

	history := toChatHistory(msgs, b.botUserID)

	// The mention itself can lag behind the history fetch; make sure the
	// triggering turn is the final user turn.
	trigger := strings.TrimSpace(stripMention(ev.Text))
	if trigger != "" && (len(history) == 0 || history[len(history)-1].Content != trigger) {
		history = append(history, tenthman.ChatTurn{Role: tenthman.RoleUser, Content: trigger})
	}

	if len(history) == 0 {
		b.post(ctx, ev.Channel, emptyChannelReply)
		return
	}

	analysis, used := tenthman.AnalyzeWithTruncation(ctx, b.analyzer, history)
	log.WithFields(logrus.Fields{
		"history_len":   len(history),
		"used_messages": used,
		"degraded":      analysis.DegradedMode,
	}).Info("analysis complete")

	b.post(ctx, ev.Channel, buildReply(analysis))
}

func (b *bot) post(ctx context.Context, channel string, text string) {
	if _, _, err := b.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		b.log.WithError(err).WithField("channel", channel).Error("post message failed")
	}
}

// fetchChannelHistory pages through conversations.history and returns messages
// oldest-first, which is the order the analyzer expects.
func (b *bot) fetchChannelHistory(ctx context.Context, channelID string) ([]slack.Message, error) {
	var msgs []slack.Message
	cursor := ""
	for {
		resp, err := b.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Limit:     b.historyLimit,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("conversations.history: %w", err)
		}
		msgs = append(msgs, resp.Messages...)
		if len(msgs) >= b.historyLimit || !resp.HasMore {
			break
		}
		cursor = resp.ResponseMetaData.NextCursor
		if cursor == "" {
			break
		}
	}
	if len(msgs) > b.historyLimit {
		msgs = msgs[:b.historyLimit]
	}
	// Slack returns newest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// messageRole maps a Slack message onto a chat role. The second return is
// false for messages that should not enter the history at all.
func messageRole(msg slack.Message, botUserID string) (string, bool) {
	switch msg.SubType {
	case "channel_join", "channel_leave":
		return "", false
	}
	if (botUserID != "" && msg.User == botUserID) || msg.SubType == "bot_message" || msg.BotID != "" {
		return tenthman.RoleAssistant, true
	}
	if msg.User != "" {
		return tenthman.RoleUser, true
	}
	return "", false
}

func toChatHistory(msgs []slack.Message, botUserID string) []tenthman.ChatTurn {
	history := make([]tenthman.ChatTurn, 0, len(msgs))
	for _, msg := range msgs {
		role, ok := messageRole(msg, botUserID)
		if !ok {
			continue
		}
		text := strings.TrimSpace(stripMention(msg.Text))
		if text == "" || text == statusMessage {
			continue
		}
		history = append(history, tenthman.ChatTurn{Role: role, Content: text})
	}
	return history
}

func stripMention(text string) string {
	return mentionPattern.ReplaceAllString(text, "")
}

func buildReply(analysis tenthman.Analysis) string {
	text := strings.TrimSpace(strings.ReplaceAll(analysis.FinalText, statusMessage, ""))
	if text == "" {
		text = emptyReply
	}
	if analysis.DegradedMode && !tenthman.IsFailureMessage(text) {
		text = tenthman.DegradedNotice + "\n\n" + text
	}
	return text + formatSources(analysis.Sources)
}

// formatSources renders up to three source links as a numbered footer.
func formatSources(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	if len(sources) > 3 {
		sources = sources[:3]
	}
	var b strings.Builder
	b.WriteString("\n\nSources:")
	for i, src := range sources {
		fmt.Fprintf(&b, "\n%d. %s", i+1, src)
	}
	return b.String()
}
