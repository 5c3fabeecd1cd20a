package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"course_outreach/internal/app"
	"course_outreach/internal/domain/outreach"
	"course_outreach/internal/domain/student"
	idb "course_outreach/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	dateLayout      = "2006-01-02"
	maxMessageLen   = 4000
	msgUnauthorized = "Error: you are not allowed to run this command."
)

type summaryRenderer interface {
	RenderRunSummary(report *app.RunReport) (string, error)
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, renderer summaryRenderer, adminTelegramID int64, location *time.Location, baseLogger *logrus.Entry) {
	guard := func(name string, c telebot.Context) (*logrus.Entry, bool) {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   name,
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return handlerLogger, false
		}
		return handlerLogger, true
	}

	b.Handle("/run_outreach", func(c telebot.Context) error {
		handlerLogger, ok := guard("/run_outreach", c)
		if !ok {
			return c.Send(msgUnauthorized)
		}
		date, err := parseDateArg(c.Args(), location)
		if err != nil {
			return c.Send("Invalid format. Use: /run_outreach [YYYY-MM-DD]")
		}
		_ = c.Send("Outreach run started.")

		report, err := adminService.RunNow(ctx, c.Sender().ID, date)
		if err != nil {
			return c.Send(describeRunError(handlerLogger, err))
		}
		handlerLogger.WithField("run_id", report.Run.ID).Info("Manual outreach run finished")
		return c.Send(fmt.Sprintf("Run %s finished: %d sent, %d failed.", report.Run.ID, report.Run.Sent, report.Run.Failed))
	})

	b.Handle("/dry_run", func(c telebot.Context) error {
		handlerLogger, ok := guard("/dry_run", c)
		if !ok {
			return c.Send(msgUnauthorized)
		}
		date, err := parseDateArg(c.Args(), location)
		if err != nil {
			return c.Send("Invalid format. Use: /dry_run [YYYY-MM-DD]")
		}

		report, err := adminService.DryRun(ctx, c.Sender().ID, date)
		if err != nil {
			return c.Send(describeRunError(handlerLogger, err))
		}
		text, err := renderer.RenderRunSummary(report)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to render dry run summary")
			return c.Send("Dry run finished but the summary could not be rendered.")
		}
		return c.Send(truncate(text))
	})

	b.Handle("/preview", func(c telebot.Context) error {
		handlerLogger, ok := guard("/preview", c)
		if !ok {
			return c.Send(msgUnauthorized)
		}
		args := c.Args()
		if len(args) < 2 || len(args) > 3 {
			return c.Send("Invalid format. Use: /preview <student_id> <course_id> [YYYY-MM-DD]")
		}
		date, err := parseDateArg(args[2:], location)
		if err != nil {
			return c.Send("Invalid date. Use YYYY-MM-DD.")
		}

		p, err := adminService.Preview(ctx, c.Sender().ID, args[0], args[1], date)
		if err != nil {
			if errors.Is(err, idb.ErrEnrollmentNotFound) {
				return c.Send(fmt.Sprintf("No active enrollment for %s in %s.", args[0], args[1]))
			}
			handlerLogger.WithError(err).Error("Failed to preview enrollment")
			return c.Send(fmt.Sprintf("Could not preview: %s", err.Error()))
		}
		return c.Send(formatPreview(p))
	})

	b.Handle("/stuck", func(c telebot.Context) error {
		handlerLogger, ok := guard("/stuck", c)
		if !ok {
			return c.Send(msgUnauthorized)
		}
		entries, err := adminService.ListStuck(ctx, c.Sender().ID)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list stuck students")
			return c.Send(fmt.Sprintf("Could not list stuck students: %s", err.Error()))
		}
		handlerLogger.WithField("stuck_count", len(entries)).Info("Stuck students listed")
		return c.Send(truncate(formatStuck(entries)))
	})

	b.Handle("/ledger", func(c telebot.Context) error {
		handlerLogger, ok := guard("/ledger", c)
		if !ok {
			return c.Send(msgUnauthorized)
		}
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Invalid format. Use: /ledger <student_id> <course_id>")
		}
		entries, err := adminService.StudentLedger(ctx, c.Sender().ID, args[0], args[1])
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to load ledger")
			return c.Send(fmt.Sprintf("Could not load ledger: %s", err.Error()))
		}
		return c.Send(truncate(formatLedger(args[0], args[1], entries)))
	})

	b.Handle("/last_run", func(c telebot.Context) error {
		handlerLogger, ok := guard("/last_run", c)
		if !ok {
			return c.Send(msgUnauthorized)
		}
		run, err := adminService.LatestRun(ctx, c.Sender().ID)
		if err != nil {
			if errors.Is(err, idb.ErrRunNotFound) {
				return c.Send("No outreach run has been recorded yet.")
			}
			handlerLogger.WithError(err).Error("Failed to load latest run")
			return c.Send(fmt.Sprintf("Could not load the latest run: %s", err.Error()))
		}
		return c.Send(formatRun(run))
	})

	b.Handle("/pause_student", func(c telebot.Context) error {
		return handleActivation(ctx, c, guard, adminService.PauseStudent, "/pause_student", "paused")
	})

	b.Handle("/resume_student", func(c telebot.Context) error {
		return handleActivation(ctx, c, guard, adminService.ResumeStudent, "/resume_student", "resumed")
	})

	b.Handle("/list_paused", func(c telebot.Context) error {
		handlerLogger, ok := guard("/list_paused", c)
		if !ok {
			return c.Send(msgUnauthorized)
		}
		students, err := adminService.ListPaused(ctx, c.Sender().ID)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list paused students")
			return c.Send(fmt.Sprintf("Could not list paused students: %s", err.Error()))
		}
		if len(students) == 0 {
			return c.Send("No paused students.")
		}
		var response strings.Builder
		response.WriteString("Paused students:\n")
		for _, s := range students {
			response.WriteString(fmt.Sprintf("- %s (%s)\n", s.FullName(), s.ID))
		}
		return c.Send(truncate(response.String()))
	})
}

type activationFunc func(ctx context.Context, performingAdminID int64, studentID string) (*student.Student, error)

func handleActivation(ctx context.Context, c telebot.Context, guard func(string, telebot.Context) (*logrus.Entry, bool), fn activationFunc, name, verb string) error {
	handlerLogger, ok := guard(name, c)
	if !ok {
		return c.Send(msgUnauthorized)
	}
	args := c.Args()
	if len(args) != 1 {
		return c.Send(fmt.Sprintf("Invalid format. Use: %s <student_id>", name))
	}
	handlerLogger = handlerLogger.WithField("student_id", args[0])

	s, err := fn(ctx, c.Sender().ID, args[0])
	if err != nil {
		logWithError := handlerLogger.WithError(err)
		switch {
		case errors.Is(err, idb.ErrStudentNotFound):
			logWithError.Warn("Student not found")
			return c.Send(fmt.Sprintf("Student %s not found.", args[0]))
		case errors.Is(err, app.ErrStudentAlreadyPaused), errors.Is(err, app.ErrStudentAlreadyActive):
			logWithError.Warn("Student already in requested state")
			return c.Send(fmt.Sprintf("Student %s is already %s.", args[0], verb))
		default:
			logWithError.Error("Failed to change student state")
			return c.Send(fmt.Sprintf("Could not update student: %s", err.Error()))
		}
	}
	handlerLogger.Infof("Student %s", verb)
	return c.Send(fmt.Sprintf("Outreach for %s (%s) %s.", s.FullName(), s.ID, verb))
}

func describeRunError(handlerLogger *logrus.Entry, err error) string {
	if errors.Is(err, app.ErrRunInProgress) {
		handlerLogger.Warn("Run already in progress")
		return "A run is already in progress. Try again when it finishes."
	}
	handlerLogger.WithError(err).Error("Outreach run failed")
	return fmt.Sprintf("Outreach run failed: %s", err.Error())
}

// parseDateArg reads an optional YYYY-MM-DD argument. No argument yields the
// zero time, meaning today.
func parseDateArg(args []string, location *time.Location) (time.Time, error) {
	if len(args) == 0 {
		return time.Time{}, nil
	}
	if len(args) > 1 {
		return time.Time{}, fmt.Errorf("too many arguments")
	}
	if location == nil {
		location = time.Local
	}
	return time.ParseInLocation(dateLayout, args[0], location)
}

func formatStuck(entries []outreach.LedgerEntry) string {
	if len(entries) == 0 {
		return "No stuck students."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Stuck students (%d):\n", len(entries)))
	for _, e := range entries {
		label := string(e.Code)
		if entry, ok := outreach.DefaultCatalog.Lookup(e.Code); ok {
			label = entry.Milestone.String()
		}
		b.WriteString(fmt.Sprintf("- %s %s %s since %s\n", e.StudentID, e.CourseID, label, e.SentOn.Format(dateLayout)))
	}
	return b.String()
}

func formatLedger(studentID, courseID string, entries []outreach.LedgerEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("Nothing recorded for %s in %s.", studentID, courseID)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Sent codes for %s in %s:\n", studentID, courseID))
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("%s %s\n", e.SentOn.Format(dateLayout), e.Code))
	}
	return b.String()
}

func formatRun(run *outreach.Run) string {
	status := "running"
	if run.FinishedAt.Valid {
		status = "finished " + run.FinishedAt.Time.Format("2006-01-02 15:04")
	}
	mode := ""
	if run.DryRun {
		mode = " (dry run)"
	}
	return fmt.Sprintf("Run %s for %s%s, %s\nEvaluated: %d\nSent: %d\nSuppressed: %d\nDeferred: %d\nFailed: %d\nInvalid: %d",
		run.ID, run.RunDate.Format(dateLayout), mode, status,
		run.Evaluated, run.Sent, run.Suppressed, run.Deferred, run.Failed, run.Invalid)
}

func formatPreview(p *app.Preview) string {
	snap := p.Snapshot
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s in %s: milestone %s, urgency %d, %d weekdays since last message.\n",
		snap.StudentID, snap.CourseID, snap.CurrentMilestone, snap.Urgency, snap.DaysSinceLastMessage))
	switch {
	case p.Deferred:
		b.WriteString("Held back by cadence today.")
	case !p.Selected:
		b.WriteString("Nothing to send.")
	case p.Record.Suppressed():
		b.WriteString(fmt.Sprintf("Would record %s without sending.", p.Record.Code))
	default:
		b.WriteString(fmt.Sprintf("Would send %s %q using %s.", p.Record.Code, p.Record.Subject.String, p.Record.BodyTemplateID.String))
	}
	return b.String()
}

func truncate(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	cut := strings.LastIndex(text[:maxMessageLen], "\n")
	if cut < 0 {
		cut = maxMessageLen
	}
	return text[:cut] + "\n..."
}
