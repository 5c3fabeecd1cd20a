// internal/app/outreach_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"course_outreach/internal/app/selector"
	"course_outreach/internal/domain/mail"
	"course_outreach/internal/domain/outreach"
	domainTelegram "course_outreach/internal/domain/telegram"
	idb "course_outreach/internal/infra/database"
	"course_outreach/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/telebot.v3"
)

var ErrRunInProgress = fmt.Errorf("an outreach run is already in progress")

const defaultWorkers = 8

// Outcome is what happened to one enrollment during a run.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeDeferred   Outcome = "deferred"
	OutcomeIdle       Outcome = "idle"
	OutcomeFailed     Outcome = "failed"
	OutcomeInvalid    Outcome = "invalid"
)

// Renderer turns templates into message bodies and admin summaries.
type Renderer interface {
	RenderBody(templateID string, letter mail.Letter) (string, error)
	RenderRunSummary(report *RunReport) (string, error)
}

// StuckStudent is a student found at the end of an escalation during a run.
type StuckStudent struct {
	StudentID string
	Milestone outreach.MilestoneKind
	Note      string
}

// RunReport is the result of one run: persisted counters plus what was
// dispatched and who is stuck.
type RunReport struct {
	Run        *outreach.Run
	Dispatches []outreach.DispatchRecord
	Stuck      []StuckStudent
}

// OutreachService evaluates all active enrollments and delivers the selected
// messages.
type OutreachService interface {
	Run(ctx context.Context, today time.Time, dryRun bool) (*RunReport, error)
	Preview(ctx context.Context, studentID, courseID string, today time.Time) (*Preview, error)
	StuckStudents(ctx context.Context) ([]outreach.LedgerEntry, error)
	StudentLedger(ctx context.Context, studentID, courseID string) ([]outreach.LedgerEntry, error)
	LatestRun(ctx context.Context) (*outreach.Run, error)
}

// OutreachServiceImpl implements the OutreachService interface.
type OutreachServiceImpl struct {
	snapshots      outreach.SnapshotSource
	ledger         outreach.LedgerRepository
	runs           outreach.RunRepository
	mailer         mail.Sender
	renderer       Renderer
	telegramClient domainTelegram.Client
	stuck          selector.StuckLogger
	logger         *logrus.Entry
	adminChatID    int64
	workers        int

	running atomic.Bool
	now     func() time.Time
}

func NewOutreachServiceImpl(
	snapshots outreach.SnapshotSource,
	ledger outreach.LedgerRepository,
	runs outreach.RunRepository,
	mailer mail.Sender,
	renderer Renderer,
	tc domainTelegram.Client,
	stuck selector.StuckLogger,
	logger *logrus.Entry,
	adminChatID int64,
	workers int,
) *OutreachServiceImpl {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &OutreachServiceImpl{
		snapshots:      snapshots,
		ledger:         ledger,
		runs:           runs,
		mailer:         mailer,
		renderer:       renderer,
		telegramClient: tc,
		stuck:          stuck,
		logger:         logger.WithField("component", "outreach_service"),
		adminChatID:    adminChatID,
		workers:        workers,
		now:            time.Now,
	}
}

// Run evaluates each student's current enrollment for today, so a student gets
// at most one message per run. A dry run selects messages but neither sends nor
// records them.
func (s *OutreachServiceImpl) Run(ctx context.Context, today time.Time, dryRun bool) (*RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	mode := "live"
	if dryRun {
		mode = "dry_run"
	}
	started := s.now()
	run := &outreach.Run{
		ID:        uuid.NewString(),
		RunDate:   outreach.Day(today),
		DryRun:    dryRun,
		StartedAt: started,
	}
	log := s.logger.WithFields(logrus.Fields{"run_id": run.ID, "run_date": run.RunDate.Format("2006-01-02"), "mode": mode})
	log.Info("Outreach run started")

	if err := s.runs.CreateRun(ctx, run); err != nil {
		metrics.RunsTotal.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("failed to create outreach run: %w", err)
	}

	snapshots, err := s.snapshots.ListActiveSnapshots(ctx, today)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("failed to list active snapshots: %w", err)
	}
	current := outreach.CurrentEnrollments(snapshots)
	log.Infof("Evaluating %d students from %d active enrollments", len(current), len(snapshots))

	collector := &stuckCollector{next: s.stuck}
	engine := selector.NewEngine(collector)

	results := make([]studentResult, len(current))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, snap := range current {
		i, snap := i, snap
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.evaluate(gctx, log, engine, snap, today, dryRun)
			return nil
		})
	}
	waitErr := g.Wait()

	report := &RunReport{Run: run, Stuck: collector.list()}
	for _, r := range results {
		if r.outcome == "" {
			// Not reached before cancellation.
			continue
		}
		run.Evaluated++
		switch r.outcome {
		case OutcomeSent:
			run.Sent++
		case OutcomeSuppressed:
			run.Suppressed++
		case OutcomeDeferred:
			run.Deferred++
		case OutcomeFailed:
			run.Failed++
		case OutcomeInvalid:
			run.Invalid++
		}
		if r.dispatched {
			report.Dispatches = append(report.Dispatches, r.record)
		}
		metrics.DispatchesTotal.WithLabelValues(r.family, string(r.outcome)).Inc()
	}
	for _, st := range report.Stuck {
		metrics.StuckStudentsTotal.WithLabelValues(string(st.Milestone.Family)).Inc()
	}

	run.FinishedAt.Time, run.FinishedAt.Valid = s.now(), true
	if err := s.runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).Error("Failed to persist outreach run summary")
	}
	metrics.RunDuration.Observe(run.FinishedAt.Time.Sub(started).Seconds())

	if waitErr != nil {
		metrics.RunsTotal.WithLabelValues(mode, "cancelled").Inc()
		log.WithError(waitErr).Warn("Outreach run interrupted")
		return report, fmt.Errorf("outreach run interrupted: %w", waitErr)
	}
	metrics.RunsTotal.WithLabelValues(mode, "success").Inc()

	log.WithFields(logrus.Fields{
		"evaluated":  run.Evaluated,
		"sent":       run.Sent,
		"suppressed": run.Suppressed,
		"deferred":   run.Deferred,
		"failed":     run.Failed,
		"invalid":    run.Invalid,
		"stuck":      len(report.Stuck),
	}).Info("Outreach run finished")

	if !dryRun {
		s.notifyAdmin(log, report)
	}
	return report, nil
}

type studentResult struct {
	outcome    Outcome
	family     string
	record     outreach.DispatchRecord
	dispatched bool
}

// evaluate handles one student's current enrollment end to end. The ledger
// write follows a successful send before evaluate returns.
func (s *OutreachServiceImpl) evaluate(ctx context.Context, runLog *logrus.Entry, engine *selector.Engine, snap *outreach.ProgressSnapshot, today time.Time, dryRun bool) studentResult {
	res := studentResult{family: "unknown"}
	if snap == nil {
		res.outcome = OutcomeInvalid
		return res
	}
	log := runLog.WithFields(logrus.Fields{"student_id": snap.StudentID, "course_id": snap.CourseID})

	if err := snap.Validate(); err != nil {
		log.WithError(err).Warn("Skipping invalid snapshot")
		res.outcome = OutcomeInvalid
		return res
	}
	res.family = string(snap.CurrentMilestone.Family)
	if snap.Blocked {
		res.family = string(outreach.FamilyBlocked)
	} else if res.family == "" {
		res.family = "none"
	}

	if !snap.Blocked && !CadenceAllows(snap.Urgency, snap.DaysSinceLastMessage) {
		res.outcome = OutcomeDeferred
		return res
	}

	entries, err := s.ledger.ListEntries(ctx, snap.StudentID, snap.CourseID)
	if err != nil {
		log.WithError(err).Error("Failed to load sent ledger")
		res.outcome = OutcomeFailed
		return res
	}
	sent := outreach.LedgerFromEntries(entries)

	rec, ok := engine.Next(selector.Input{Snapshot: snap, Ledger: sent, Today: today})
	if !ok || (rec.Suppressed() && sent.Has(rec.Code)) {
		res.outcome = OutcomeIdle
		return res
	}
	res.record = rec
	log = log.WithField("code", rec.Code)

	if rec.Suppressed() {
		if !dryRun {
			if err := s.record(ctx, rec, today); err != nil {
				log.WithError(err).Error("Failed to record suppressed code")
				res.outcome = OutcomeFailed
				return res
			}
		}
		log.Debug("Recorded suppressed code")
		res.outcome, res.dispatched = OutcomeSuppressed, true
		return res
	}

	body, err := s.renderer.RenderBody(rec.BodyTemplateID.String, mail.Letter{
		FirstName: snap.FirstName,
		Subject:   rec.Subject.String,
		Code:      rec.Code,
		Content:   rec.Content,
	})
	if err != nil {
		log.WithError(err).Error("Failed to render message body")
		res.outcome = OutcomeFailed
		return res
	}
	if dryRun {
		res.outcome, res.dispatched = OutcomeSent, true
		return res
	}

	start := time.Now()
	err = s.mailer.Send(ctx, mail.Message{
		To:       snap.Email,
		ToName:   snap.FirstName,
		Subject:  rec.Subject.String,
		HTMLBody: body,
	})
	metrics.ObserveMailSend(start, err)
	if err != nil {
		log.WithError(err).Error("Failed to send outreach email")
		res.outcome = OutcomeFailed
		return res
	}
	if err := s.record(ctx, rec, today); err != nil {
		log.WithError(err).Error("Email sent but code not recorded")
		res.outcome = OutcomeFailed
		return res
	}
	log.Info("Outreach email sent")
	res.outcome, res.dispatched = OutcomeSent, true
	return res
}

func (s *OutreachServiceImpl) record(ctx context.Context, rec outreach.DispatchRecord, today time.Time) error {
	// A send that already went out must land in the ledger even if the run is
	// being cancelled.
	return s.ledger.Record(context.WithoutCancel(ctx), outreach.LedgerEntry{
		StudentID: rec.StudentID,
		CourseID:  rec.CourseID,
		Code:      rec.Code,
		SentOn:    outreach.Day(today),
	})
}

func (s *OutreachServiceImpl) notifyAdmin(log *logrus.Entry, report *RunReport) {
	if s.telegramClient == nil || s.adminChatID == 0 {
		return
	}
	text, err := s.renderer.RenderRunSummary(report)
	if err != nil {
		log.WithError(err).Error("Failed to render run summary")
		return
	}
	if err := s.telegramClient.SendMessage(s.adminChatID, text, &telebot.SendOptions{ParseMode: telebot.ModeDefault}); err != nil {
		log.WithError(err).Error("Failed to send run summary to admin")
	}
}

// Preview is what a run would do today for one enrollment.
type Preview struct {
	Snapshot *outreach.ProgressSnapshot
	Deferred bool // held back by cadence
	Record   outreach.DispatchRecord
	Selected bool
}

// Preview evaluates one enrollment without sending or recording anything.
func (s *OutreachServiceImpl) Preview(ctx context.Context, studentID, courseID string, today time.Time) (*Preview, error) {
	snap, err := s.snapshots.GetSnapshot(ctx, studentID, courseID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s/%s: %w", studentID, courseID, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListEntries(ctx, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sent ledger for %s/%s: %w", studentID, courseID, err)
	}

	p := &Preview{Snapshot: snap}
	if snap.Completed {
		return p, nil
	}
	p.Deferred = !snap.Blocked && !CadenceAllows(snap.Urgency, snap.DaysSinceLastMessage)
	sent := outreach.LedgerFromEntries(entries)
	rec, ok := selector.NewEngine(nil).Next(selector.Input{Snapshot: snap, Ledger: sent, Today: today})
	p.Record, p.Selected = rec, ok && !(rec.Suppressed() && sent.Has(rec.Code))
	return p, nil
}

// StuckStudents lists every ledger entry holding a terminal escalation code.
func (s *OutreachServiceImpl) StuckStudents(ctx context.Context) ([]outreach.LedgerEntry, error) {
	entries, err := s.ledger.ListByCodes(ctx, outreach.DefaultCatalog.StuckCodes())
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck students: %w", err)
	}
	return entries, nil
}

func (s *OutreachServiceImpl) StudentLedger(ctx context.Context, studentID, courseID string) ([]outreach.LedgerEntry, error) {
	entries, err := s.ledger.ListEntries(ctx, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger for %s/%s: %w", studentID, courseID, err)
	}
	return entries, nil
}

func (s *OutreachServiceImpl) LatestRun(ctx context.Context) (*outreach.Run, error) {
	run, err := s.runs.GetLatestRun(ctx)
	if err != nil {
		if errors.Is(err, idb.ErrRunNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// stuckCollector keeps the stuck students of one run and forwards each to the
// configured logger. Selectors call it from several goroutines.
type stuckCollector struct {
	mu    sync.Mutex
	items []StuckStudent
	next  selector.StuckLogger
}

func (c *stuckCollector) Stuck(studentID string, milestone outreach.MilestoneKind, note string) {
	c.mu.Lock()
	c.items = append(c.items, StuckStudent{StudentID: studentID, Milestone: milestone, Note: note})
	c.mu.Unlock()
	if c.next != nil {
		c.next.Stuck(studentID, milestone, note)
	}
}

func (c *stuckCollector) list() []StuckStudent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]StuckStudent(nil), c.items...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].Milestone.String() < out[j].Milestone.String()
	})
	return out
}
