package model

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookRequest_Validate(t *testing.T) {
	req := CreateBookRequest{Title: "  The Dispossessed  "}
	req.Normalize()
	assert.Equal(t, "The Dispossessed", req.Title)
	assert.NoError(t, req.Validate())

	empty := CreateBookRequest{Title: "   "}
	empty.Normalize()
	assert.Error(t, empty.Validate())

	long := CreateBookRequest{Title: strings.Repeat("x", MaxTitleLength+1)}
	assert.Error(t, long.Validate())
}

func TestParseAvailableFilter(t *testing.T) {
	v, err := ParseAvailableFilter("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseAvailableFilter("true")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)

	v, err = ParseAvailableFilter("0")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.False(t, *v)

	_, err = ParseAvailableFilter("maybe")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestToResponses_MissingIsAvailable(t *testing.T) {
	now := time.Now()
	books := []Book{{ID: 1, Title: "a", CreatedAt: now}, {ID: 2, Title: "b", CreatedAt: now}}

	out := ToResponses(books, map[int64]bool{2: false})
	require.Len(t, out, 2)
	assert.True(t, out[0].Available)
	assert.False(t, out[1].Available)
}

func TestErrorMapping(t *testing.T) {
	wrapped := fmt.Errorf("delete: %w", ErrBookHasLeases)
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(wrapped))
	assert.Equal(t, "BOOK_HAS_LEASES", ToErrorCode(wrapped))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(ErrAuthorNotFound))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(ErrInvalidFilter))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(assert.AnError))
	assert.Equal(t, "INTERNAL_ERROR", ToErrorCode(assert.AnError))
}
