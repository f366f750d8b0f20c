package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFeed_DropsOldestWhenFull(t *testing.T) {
	f := NewFeed(2)
	Raise(f, Success, "one")
	Raise(f, Error, "two")
	Raise(f, Warning, "three")

	got := f.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, Warning, got[1].Severity)

	assert.Empty(t, f.Drain())
	assert.NotNil(t, f.Drain(), "drain of an empty feed encodes as []")
}

func TestLog_LevelFollowsSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := Log(zap.New(core))

	Raise(n, Success, "added")
	Raise(n, Warning, "expired")
	Raise(n, Error, "save failed")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "save failed", entries[2].Message)
	assert.Equal(t, "notify", entries[2].LoggerName, "the sink names the logger it is given exactly once")
}

func TestMulti_FansOut(t *testing.T) {
	var got []string
	a := NewFeed(4)
	m := Multi{a, nil, Func(func(n Notification) { got = append(got, n.Message) })}

	Raise(m, Success, "hello")
	Raise(nil, Success, "dropped")

	assert.Equal(t, []string{"hello"}, got)
	assert.Len(t, a.Drain(), 1)
}
