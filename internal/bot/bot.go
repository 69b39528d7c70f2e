package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/events"
	"github.com/maxaizer/job-finder/internal/pipeline"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultRecentMatches = 5
	maxRecentMatches     = 20
	maxSummaryRunes      = 300
)

type queueStats interface {
	CountByStatus(ctx context.Context) (map[entities.ItemStatus]int64, error)
}

type matchReader interface {
	Recent(ctx context.Context, limit int) ([]entities.JobMatch, error)
}

type scrapeTrigger interface {
	TriggerScrape(ctx context.Context, req pipeline.TriggerRequest) (*entities.QueueItem, error)
}

type settingsRefresher interface {
	Refresh()
}

type Services struct {
	Queue    queueStats
	Results  matchReader
	Scrapes  scrapeTrigger
	Settings settingsRefresher
}

// Bot posts saved matches and discovered sources to a single chat and answers
// a few commands from that chat. Messages from other chats are ignored.
type Bot struct {
	api      apiInterface
	chatID   int64
	bus      EventBus.Bus
	services Services
}

func NewBot(token string, chatID int64, bus EventBus.Bus, services Services) (*Bot, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	err = botApi.SetLogger(log.StandardLogger())
	if err != nil {
		return nil, err
	}

	return newBot(api, chatID, bus, services)
}

func newBot(api apiInterface, chatID int64, bus EventBus.Bus, services Services) (*Bot, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}

	if services.Queue == nil || services.Results == nil || services.Scrapes == nil || services.Settings == nil {
		return nil, errors.New("bot services are not set")
	}

	createdBot := &Bot{api: api, chatID: chatID, bus: bus, services: services}

	if err := bus.Subscribe(events.MatchSavedTopic, createdBot.onMatchSaved); err != nil {
		return nil, err
	}
	if err := bus.Subscribe(events.SourceDiscoveredTopic, createdBot.onSourceDiscovered); err != nil {
		return nil, err
	}
	return createdBot, nil
}

func (b *Bot) Run() {

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)

	for update := range updates {
		b.handleUpdate(update)
	}
}

func (b *Bot) Stop() {
	_ = b.bus.Unsubscribe(events.MatchSavedTopic, b.onMatchSaved)
	_ = b.bus.Unsubscribe(events.SourceDiscoveredTopic, b.onSourceDiscovered)
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(update botApi.Update) {

	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	if update.Message.Chat.ID != b.chatID {
		log.Debugf("ignoring message from chat %d", update.Message.Chat.ID)
		return
	}

	cmd := update.Message.Command()
	if cmd == "" {
		return
	}

	text := b.handleCommand(context.Background(), cmd, update.Message.CommandArguments())
	_, _ = sendWithLogError(b.api, botApi.NewMessage(b.chatID, text))
}

func (b *Bot) handleCommand(ctx context.Context, command string, args string) string {

	switch command {
	case startCommandName, helpCommandName:
		return helpText
	case statusCommandName:
		return b.status(ctx)
	case recentCommandName:
		return b.recent(ctx, args)
	case scrapeCommandName:
		return b.scrape(ctx, args)
	case reloadCommandName:
		b.services.Settings.Refresh()
		return "Settings will be reloaded on next use."
	default:
		return "Unknown command.\n\n" + helpText
	}
}

func (b *Bot) status(ctx context.Context) string {
	counts, err := b.services.Queue.CountByStatus(ctx)
	if err != nil {
		log.Errorf("failed to count queue items: %v", err)
		return "Internal error!"
	}

	var sb strings.Builder
	sb.WriteString("Queue:")
	for _, status := range []entities.ItemStatus{
		entities.StatusPending, entities.StatusProcessing, entities.StatusSuccess,
		entities.StatusFiltered, entities.StatusSkipped, entities.StatusFailed,
	} {
		fmt.Fprintf(&sb, "\n%s: %d", status, counts[status])
	}
	return sb.String()
}

func (b *Bot) recent(ctx context.Context, args string) string {
	limit := defaultRecentMatches
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return "Usage: /recent [n]"
		}
		limit = min(n, maxRecentMatches)
	}

	matches, err := b.services.Results.Recent(ctx, limit)
	if err != nil {
		log.Errorf("failed to load recent matches: %v", err)
		return "Internal error!"
	}
	if len(matches) == 0 {
		return "No matches saved yet."
	}

	lines := make([]string, 0, len(matches))
	for _, match := range matches {
		lines = append(lines, fmt.Sprintf("%d%% %s at %s\n%s", match.MatchScore, match.Title, match.CompanyName, match.URL))
	}
	return strings.Join(lines, "\n\n")
}

func (b *Bot) scrape(ctx context.Context, args string) string {
	req := pipeline.TriggerRequest{Origin: entities.OriginUser}
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 0 {
			return "Usage: /scrape [target matches]"
		}
		req.TargetMatches = n
	}

	item, err := b.services.Scrapes.TriggerScrape(ctx, req)
	if err != nil {
		if errors.Is(err, pipeline.ErrScrapeAlreadyPending) {
			return "A scrape is already pending."
		}
		log.Errorf("failed to trigger scrape: %v", err)
		return "Internal error!"
	}
	return fmt.Sprintf("Scrape request %d queued.", item.ID)
}

func (b *Bot) onMatchSaved(event events.MatchSaved) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New match (%d%%): %s", event.MatchScore, event.Title)
	if event.Company != "" {
		fmt.Fprintf(&sb, " at %s", event.Company)
	}
	if event.Location != "" {
		fmt.Fprintf(&sb, ", %s", event.Location)
	}
	if summary := truncate(event.Summary, maxSummaryRunes); summary != "" {
		sb.WriteString("\n\n" + summary)
	}
	sb.WriteString("\n" + event.URL)

	_, _ = sendWithLogError(b.api, botApi.NewMessage(b.chatID, sb.String()))
}

func (b *Bot) onSourceDiscovered(event events.SourceDiscovered) {
	text := fmt.Sprintf("New %s source %q: %s", event.SourceType, event.Name, event.URL)
	if !event.Enabled {
		text += "\nLeft disabled: " + event.Reason
	}
	_, _ = sendWithLogError(b.api, botApi.NewMessage(b.chatID, text))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
