package commandtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/chromabuild/pkg/command"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder("cmake").
		Reply("pkg-config --modversion libchromaprint", "1.5.1\n").
		Reply("pkg-config --libs*", "-lchromaprint\n").
		Fail("cmake --build build", errors.New("exit status 2"))

	_, err := r.LookPath("cmake")
	assert.NoError(t, err)
	_, err = r.LookPath("pkg-config")
	assert.ErrorIs(t, err, command.ErrNotInstalled)

	ctx := context.Background()
	out, err := r.Output(ctx, command.Cmd{Name: "pkg-config", Args: []string{"--modversion", "libchromaprint"}})
	require.NoError(t, err)
	assert.Equal(t, "1.5.1\n", string(out))

	out, err = r.Output(ctx, command.Cmd{Name: "pkg-config", Args: []string{"--libs-only-l", "libchromaprint"}})
	require.NoError(t, err)
	assert.Equal(t, "-lchromaprint\n", string(out))

	assert.Error(t, r.Run(ctx, command.Cmd{Name: "cmake", Args: []string{"--build", "build"}}))
	assert.Len(t, r.Calls(), 3)
}
