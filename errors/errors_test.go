package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrapPreservesChain(t *testing.T) {
	err := WrapInvalid(ErrMalformedLiteral, "Extractor", "Extract", "decode literal")
	require.Error(t, err)

	assert.True(t, stderrors.Is(err, ErrMalformedLiteral))

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Extractor", ce.Component)
	assert.Equal(t, "Extract", ce.Operation)
	assert.Contains(t, err.Error(), "Extractor.Extract: decode literal failed")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "C", "M", "a"))
	assert.NoError(t, WrapTransient(nil, "C", "M", "a"))
	assert.NoError(t, WrapInvalid(nil, "C", "M", "a"))
	assert.NoError(t, WrapFatal(nil, "C", "M", "a"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"invalid config is fatal", ErrInvalidConfig, ErrorFatal},
		{"missing config is fatal", ErrMissingConfig, ErrorFatal},
		{"malformed literal is invalid", ErrMalformedLiteral, ErrorInvalid},
		{"dimension mismatch is invalid", ErrDimensionMismatch, ErrorInvalid},
		{"storage unavailable is transient", ErrStorageUnavailable, ErrorTransient},
		{"unknown error defaults to transient", stderrors.New("boom"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifiedWrapsOverrideSentinels(t *testing.T) {
	// Explicit classification wins over the sentinel's default class.
	err := WrapFatal(ErrMalformedLiteral, "Pipeline", "Run", "validate input")
	assert.True(t, IsFatal(err))
	assert.False(t, IsInvalid(err))
}
