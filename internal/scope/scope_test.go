package scope

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/datagrid/internal/model"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (c *captureLogger) Printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func TestNewAssignsDistinctOperationIDs(t *testing.T) {
	a := New(context.Background(), model.ModeInteractive, nil)
	b := New(context.Background(), model.ModeInteractive, nil)
	assert.NotEqual(t, a.OperationID, b.OperationID)
}

func TestNewDefaultsNilParentAndLogger(t *testing.T) {
	s := New(nil, model.ModeHeadless, nil)
	require.NotNil(t, s.Context())
	assert.False(t, s.Cancelled())
}

func TestCancelMarksScopeCancelled(t *testing.T) {
	s := New(context.Background(), model.ModeInteractive, nil)
	assert.False(t, s.Cancelled())
	s.Cancel()
	assert.True(t, s.Cancelled())
	assert.Error(t, s.Context().Err())
}

func TestCancelPropagatesFromParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := New(parent, model.ModeInteractive, nil)
	cancel()
	assert.True(t, s.Cancelled())
}

func TestCheckCancelledLogsOnlyWhenCancelled(t *testing.T) {
	logger := &captureLogger{}
	s := New(context.Background(), model.ModeInteractive, logger)

	assert.False(t, s.CheckCancelled())
	assert.Empty(t, logger.lines)

	s.Cancel()
	assert.True(t, s.CheckCancelled())
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "cancellation observed")
}

func TestFinishLogsFailureDistinctlyFromSuccess(t *testing.T) {
	logger := &captureLogger{}
	s := New(context.Background(), model.ModeInteractive, logger)
	s.Finish(OutcomeSuccess, "did the thing")
	require.Len(t, logger.lines, 1)
	assert.True(t, strings.Contains(logger.lines[0], "Success"))

	logger2 := &captureLogger{}
	s2 := New(context.Background(), model.ModeInteractive, logger2)
	s2.Finish(OutcomeFailure, "boom")
	require.Len(t, logger2.lines, 1)
	assert.Contains(t, logger2.lines[0], "failure")
}
