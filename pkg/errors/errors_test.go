package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorPassesThroughTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrTeacherSlotTaken, "teacher busy"))

	got := FromError(wrapped)
	assert.Equal(t, ErrTeacherSlotTaken.Code, got.Code)
	assert.Equal(t, "teacher busy", got.Message)
}

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	cause := stderrors.New("connection reset")

	got := FromError(cause)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.ErrorIs(t, got, cause)
}

func TestIsComparesCodes(t *testing.T) {
	err := Wrap(stderrors.New("boom"), ErrSectionSlotTaken.Code, ErrSectionSlotTaken.Status, "section busy")

	assert.True(t, Is(err, ErrSectionSlotTaken))
	assert.False(t, Is(err, ErrTeacherSlotTaken))
	assert.False(t, Is(nil, ErrSectionSlotTaken))
}

func TestCloneKeepsOriginalUntouched(t *testing.T) {
	clone := Clone(ErrInvalidPeriod, "period 9 out of range")

	assert.Equal(t, "period 9 out of range", clone.Message)
	assert.Equal(t, "period outside configured daily bounds", ErrInvalidPeriod.Message)
}
