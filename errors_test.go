package bmff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetsuo/bmff"
)

func TestBoxErrorUnwrapsToSentinel(t *testing.T) {
	wrapped := &bmff.BoxError{Type: bmff.TypeStsd, Offset: 0, Err: bmff.ErrTruncated}
	require.ErrorIs(t, wrapped, bmff.ErrTruncated)
}
