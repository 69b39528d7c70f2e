package gemini

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func Test_IsTemporary(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsTemporary(&googleapi.Error{Code: 429}))
	assert.True(IsTemporary(&googleapi.Error{Code: 503}))
	assert.True(IsTemporary(fmt.Errorf("generate: %w", &googleapi.Error{Code: 500})))
	assert.False(IsTemporary(&googleapi.Error{Code: 400}))
	assert.True(IsTemporary(ErrEmptyResponse))
	assert.True(IsTemporary(context.DeadlineExceeded))
	assert.True(IsTemporary(errors.New("googleapi: Error 500: internal")))
	assert.False(IsTemporary(errors.New("invalid api key")))
	assert.False(IsTemporary(nil))
}

func Test_isInternalError(t *testing.T) {
	assert.True(t, isInternalError(&googleapi.Error{Code: 502}))
	assert.False(t, isInternalError(&googleapi.Error{Code: 429}))
	assert.False(t, isInternalError(nil))
}
