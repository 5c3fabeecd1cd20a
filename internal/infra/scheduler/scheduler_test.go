package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"course_outreach/internal/app"
	"course_outreach/internal/domain/outreach"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  int
	dryRun []bool
	err    error
}

func (f *fakeRunner) Run(_ context.Context, today time.Time, dryRun bool) (*app.RunReport, error) {
	f.calls++
	f.dryRun = append(f.dryRun, dryRun)
	if f.err != nil {
		return nil, f.err
	}
	return &app.RunReport{Run: &outreach.Run{ID: "run-1", RunDate: today}}, nil
}

type blockingRunner struct {
	started chan struct{}
	err     error
}

func (b *blockingRunner) Run(ctx context.Context, _ time.Time, _ bool) (*app.RunReport, error) {
	close(b.started)
	<-ctx.Done()
	b.err = ctx.Err()
	return nil, b.err
}

func newTestScheduler(r runner, spec string) (*OutreachScheduler, *test.Hook) {
	base, hook := test.NewNullLogger()
	return NewOutreachScheduler(r, logrus.NewEntry(base), spec, time.UTC), hook
}

func TestExecuteRunsLive(t *testing.T) {
	r := &fakeRunner{}
	s, hook := newTestScheduler(r, "0 19 * * 1-5")

	s.execute(context.Background())
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []bool{false}, r.dryRun)
	assert.Equal(t, "Scheduled outreach run completed.", hook.LastEntry().Message)
}

func TestExecuteLogsFailures(t *testing.T) {
	r := &fakeRunner{err: app.ErrRunInProgress}
	s, hook := newTestScheduler(r, "0 19 * * 1-5")

	s.execute(context.Background())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	r.err = errors.New("db down")
	s.execute(context.Background())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, _ := newTestScheduler(&fakeRunner{}, "not a spec")
	assert.Error(t, s.Start())

	s, _ = newTestScheduler(&fakeRunner{}, "0 19 * * 1-5")
	require.NoError(t, s.Start())
	s.Stop()
}

func TestStopCancelsRunningJob(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{})}
	s, _ := newTestScheduler(r, "0 19 * * 1-5")
	require.NoError(t, s.Start())

	done := make(chan struct{})
	go func() {
		s.execute(s.ctx)
		close(done)
	}()
	<-r.started
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("running job was not cancelled by Stop")
	}
	assert.ErrorIs(t, r.err, context.Canceled)
}
