package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/job-finder/internal/logger"
	log "github.com/sirupsen/logrus"
)

type apiInterface interface {
	Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const (
	startCommandName  = "start"
	helpCommandName   = "help"
	statusCommandName = "status"
	recentCommandName = "recent"
	scrapeCommandName = "scrape"
	reloadCommandName = "reload"
)

const helpText = `Commands:
/status - queue items by status
/recent [n] - the last saved matches
/scrape [target matches] - queue a scrape of the due sources
/reload - drop cached filter and queue settings`

func sendWithLogError(api apiInterface, chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, err := api.Send(chattable)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("error occured while sending message: %v", err)
	}
	return msg, err
}
