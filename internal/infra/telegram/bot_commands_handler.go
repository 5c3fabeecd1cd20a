// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, %s! Outreach is ready. Use /help for the list of commands.", c.Sender().FirstName))
		}

		logCtx.Info("User is unknown")
		return c.Send("This bot is the admin console of the course outreach service and only answers its administrator.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			logCtx.Info("User is unknown, sending restricted help.")
			return c.Send("No commands are available to you.")
		}
		return c.Send(adminHelp(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func adminHelp() string {
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/run_outreach [YYYY-MM-DD]`\n - Run outreach now for today or the given date.\n\n")
	helpText.WriteString("`/dry_run [YYYY-MM-DD]`\n - Show what a run would send without sending or recording anything.\n\n")
	helpText.WriteString("`/preview <student_id> <course_id> [YYYY-MM-DD]`\n - Show the next message for one enrollment.\n\n")
	helpText.WriteString("`/stuck`\n - List students who received a final \"stuck\" message.\n\n")
	helpText.WriteString("`/ledger <student_id> <course_id>`\n - Show the codes already sent for an enrollment.\n\n")
	helpText.WriteString("`/last_run`\n - Show the counters of the latest run.\n\n")
	helpText.WriteString("`/pause_student <student_id>` and `/resume_student <student_id>`\n - Stop or restart outreach for a student.\n\n")
	helpText.WriteString("`/list_paused`\n - List paused students.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
