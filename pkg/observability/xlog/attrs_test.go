package xlog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/stretchr/testify/assert"
)

type entityID struct{ n int }

func (e entityID) String() string { return "entity-" + string(rune('0'+e.n)) }

func TestAttrs(t *testing.T) {
	assert.Equal(t, "", xlog.Err(nil).Key)
	assert.Equal(t, "boom", xlog.Err(errors.New("boom")).Value.String())
	assert.Equal(t, "1.5s", xlog.Duration(1500*time.Millisecond).Value.String())
	assert.Equal(t, xlog.KeyComponent, xlog.Component("c").Key)
	assert.Equal(t, xlog.KeyOperation, xlog.Operation("lock").Key)
	assert.Equal(t, int64(3), xlog.Count(3).Value.Int64())
	assert.Equal(t, "w1", xlog.Owner("w1").Value.String())
	assert.Equal(t, uint64(4), xlog.Depth(4).Value.Uint64())
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "k1", xlog.LockKey("k1").Value.String())
	assert.Equal(t, "42", xlog.LockKey(42).Value.String())
	assert.Equal(t, "entity-7", xlog.LockKey(entityID{7}).Value.String())
	assert.Equal(t, xlog.KeyLockKey, xlog.LockKey("k").Key)
}
