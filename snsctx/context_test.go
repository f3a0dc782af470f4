package snsctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbose(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsVerbose(ctx))
	assert.True(t, IsVerbose(SetVerbose(ctx, true)))
	assert.False(t, IsVerbose(SetVerbose(SetVerbose(ctx, true), false)))
}

func TestDump(t *testing.T) {
	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Dump(context.Background(), log, "i2c write", []byte{0x8C, 0x05})
	assert.Empty(t, out.String())

	Dump(SetVerbose(context.Background(), true), log, "i2c write", []byte{0x8C, 0x05}, "addr", "0x71")
	assert.Contains(t, out.String(), "data=8c05")
	assert.Contains(t, out.String(), "addr=0x71")
	assert.Contains(t, out.String(), "len=2")
}
