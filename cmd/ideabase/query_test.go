package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFlag(t *testing.T) {
	field, value, err := splitFlag("status=approved")
	assert.NoError(t, err)
	assert.Equal(t, "status", field)
	assert.Equal(t, "approved", value)

	field, value, err = splitFlag("title=a=b")
	assert.NoError(t, err)
	assert.Equal(t, "title", field)
	assert.Equal(t, "a=b", value)

	_, _, err = splitFlag("status")
	assert.Error(t, err)
	_, _, err = splitFlag("=approved")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, "42", parseValue("42"))
}

func TestQueryCmdArgs(t *testing.T) {
	cmd := queryCmd()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
