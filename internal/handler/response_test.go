package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/dunning-api/pkg/errors"
)

func TestNewAppErrorResponseCarriesCode(t *testing.T) {
	appErr := apperrors.NewClaimConflict("cfg-1")

	resp := NewAppErrorResponse(appErr)

	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, apperrors.ErrClaimConflict, resp.Code)
	assert.Equal(t, appErr.Message, resp.Message)
	assert.Nil(t, resp.Data)
}

func TestNewErrorResponseLeavesCodeUnset(t *testing.T) {
	resp := NewErrorResponse("invalid limit")

	assert.Equal(t, "error", resp.Status)
	assert.Zero(t, resp.Code)
	assert.Equal(t, "invalid limit", resp.Message)
}
