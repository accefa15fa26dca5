package sl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostplane/controlplane/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("boom")
	attr := sl.Err(err)

	require.Equal(t, "error", attr.Key)
	require.Equal(t, "boom", attr.Value.String())
}
