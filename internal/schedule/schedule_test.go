// ABOUTME: Tests for the cron scheduler wrapper.
// ABOUTME: Verifies expression validation and that triggered runs use today's date.

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/pccs/cvreport/internal/engine"
	"github.com/pccs/cvreport/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	dates []string
}

func (r *recordingRunner) Run(ctx context.Context, date string) (engine.RunResult, error) {
	r.dates = append(r.dates, date)
	return engine.RunResult{Date: date, Rows: 1}, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestNewRejectsBadExpression(t *testing.T) {
	_, err := New("not a cron spec", &recordingRunner{}, testLogger())
	assert.Error(t, err)
}

func TestNewAcceptsDailyExpression(t *testing.T) {
	s, err := New("0 6 * * *", &recordingRunner{}, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestRunOnceUsesCurrentDate(t *testing.T) {
	runner := &recordingRunner{}
	s, err := New("0 6 * * *", runner, testLogger())
	require.NoError(t, err)

	s.runOnce()
	require.Len(t, runner.dates, 1)
	assert.Equal(t, time.Now().Format(storage.DateFormat), runner.dates[0])
}
