package validation

import (
	"errors"
	"testing"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewInput struct {
	BookID  string `json:"bookId" validate:"required"`
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,max=20"`
}

func TestValidate(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.Validate(reviewInput{BookID: "b1", Rating: 4, Comment: "good"}))
	})

	t.Run("details use json names", func(t *testing.T) {
		err := v.Validate(reviewInput{Rating: 9, Comment: "this comment is far too long"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrValidation))

		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, MsgInvalidData, appErr.Message)
		details, ok := appErr.Details.(map[string]string)
		require.True(t, ok)
		assert.Equal(t, "is required", details["bookId"])
		assert.Equal(t, "must be less than or equal to 5", details["rating"])
		assert.Equal(t, "must not exceed 20 characters", details["comment"])
	})

	t.Run("only missing fields", func(t *testing.T) {
		err := v.Validate(reviewInput{})
		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, MsgMissingFields, appErr.Message)
		assert.Len(t, appErr.Details, 3)
	})
}
