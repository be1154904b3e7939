package pkg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrettyPrint(&buf, map[string]any{"phase": "success"}))
	assert.Equal(t, "{\n  \"phase\": \"success\"\n}\n", buf.String())

	assert.Error(t, PrettyPrint(&buf, func() {}))
}

func TestAssertNoError(t *testing.T) {
	assert.NotPanics(t, func() { AssertNoError(nil) })
	assert.Panics(t, func() { AssertNoError(errors.New("boom")) })
}
