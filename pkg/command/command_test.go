package command

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdString(t *testing.T) {
	c := Cmd{Name: "pkg-config", Args: []string{"--modversion", "libchromaprint"}}
	assert.Equal(t, "pkg-config --modversion libchromaprint", c.String())
	assert.Equal(t, "cmake", Cmd{Name: "cmake"}.String())
}

func TestExecLookPathMissing(t *testing.T) {
	_, err := NewExec(nil).LookPath("chromabuild-no-such-tool")
	assert.True(t, errors.Is(err, ErrNotInstalled))
}

func TestExecOutputAndPassthrough(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	var out bytes.Buffer
	x := NewExec(&Config{Stdout: &out})

	got, err := x.Output(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "printf 1.5.1"}})
	require.NoError(t, err)
	assert.Equal(t, "1.5.1", string(got))

	require.NoError(t, x.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo configured"}}))
	assert.Equal(t, "configured\n", out.String())

	_, err = x.Output(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
