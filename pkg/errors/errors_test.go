package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorFormatting(t *testing.T) {
	underlying := stderrors.New("yaml: line 4: mapping values are not allowed")

	withLine := NewParseError("hubsync.yaml", 4, underlying)
	assert.Equal(t, "parse error: hubsync.yaml:4: yaml: line 4: mapping values are not allowed", withLine.Error())

	withoutLine := NewParseError("hubsync.yaml", 0, underlying)
	assert.Equal(t, "parse error: hubsync.yaml: yaml: line 4: mapping values are not allowed", withoutLine.Error())

	assert.True(t, stderrors.Is(withLine, underlying))
}

func TestValidationErrorFormatting(t *testing.T) {
	withField := NewValidationError("integrations[1].id", "duplicate id \"office\"", nil)
	assert.Equal(t, "validation error: integrations[1].id: duplicate id \"office\"", withField.Error())

	withoutField := NewValidationError("", "manifest is nil", nil)
	assert.Equal(t, "validation error: manifest is nil", withoutField.Error())
}
