package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	saved := Logger
	t.Cleanup(func() { Logger = saved })

	tests := []struct {
		name      string
		json      bool
		verbose   bool
		wantDebug bool
	}{
		{name: "console", json: false, verbose: false, wantDebug: false},
		{name: "console verbose", json: false, verbose: true, wantDebug: true},
		{name: "json", json: true, verbose: false, wantDebug: false},
		{name: "json verbose", json: true, verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Initialize(tt.json, tt.verbose))
			core := Logger.Desugar().Core()
			assert.Equal(t, tt.wantDebug, core.Enabled(zapcore.DebugLevel))
			assert.True(t, core.Enabled(zapcore.WarnLevel))
		})
	}
}
