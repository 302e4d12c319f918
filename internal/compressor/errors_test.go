package compressor

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfItsKind(t *testing.T) {
	sentinels := map[Kind]error{
		KindInvalidInput:  ErrInvalidInput,
		KindDecodeFailure: ErrDecodeFailure,
		KindEncodeFailure: ErrEncodeFailure,
		KindIOFailure:     ErrIOFailure,
	}

	for kind, sentinel := range sentinels {
		t.Run(kind.String(), func(t *testing.T) {
			err := error(newError(kind, "op", "a.jpg", errors.New("boom")))
			assert.ErrorIs(t, err, sentinel)
			for other, s := range sentinels {
				if other != kind {
					assert.NotErrorIs(t, err, s)
				}
			}
		})
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	err := fmt.Errorf("batch: %w", newError(KindIOFailure, "mkdir", "/out", fs.ErrPermission))

	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.Equal(t, KindIOFailure, KindOf(err))
	assert.Equal(t, "batch: io_failure mkdir failed for file /out: permission denied", err.Error())
}

func TestErrorWithoutPath(t *testing.T) {
	err := newError(KindInvalidInput, "validate", "", errors.New("Quality must be at most 100"))
	assert.Equal(t, "invalid_input validate failed: Quality must be at most 100", err.Error())
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("other")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestAsErrorKeepsExistingKind(t *testing.T) {
	inner := newError(KindInvalidInput, "probe", "x.png", errors.New("no such file"))
	assert.Same(t, inner, asError(KindDecodeFailure, "decode", "x.png", inner))

	wrapped := asError(KindDecodeFailure, "decode", "x.png", errors.New("bad huffman"))
	assert.Equal(t, KindDecodeFailure, KindOf(wrapped))
}
