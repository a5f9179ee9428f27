package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	setupTestServices(t)
	original := version
	t.Cleanup(func() { version = original })

	tests := []struct {
		version string
		want    string
	}{
		{"dev", "layerpull version dev\n"},
		{"v1.4.0", "layerpull version v1.4.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			version = tt.version

			code, out, errOut := run(t, "version")

			require.Equal(t, ExitOK, code, errOut)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	setupTestServices(t)

	code, _, errOut := run(t, "version", "extra")

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "unknown command")
}
