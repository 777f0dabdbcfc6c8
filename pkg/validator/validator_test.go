package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("alice@example.com"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail(""))
}

func TestValidatePassword(t *testing.T) {
	assert.False(t, ValidatePassword("Str0ngEnough").HasErrors())

	assert.True(t, ValidatePassword("short").HasErrors())
	assert.True(t, ValidatePassword("nouppercase1").HasErrors())
	assert.True(t, ValidatePassword("NOLOWERCASE1").HasErrors())
	assert.True(t, ValidatePassword("NoNumbersHere").HasErrors())
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidatePassword("alllower")
	assert.Contains(t, errs.Error(), "password:")
}

func TestValidateName(t *testing.T) {
	assert.True(t, ValidateName("Alice"))
	assert.True(t, ValidateName("  Bo  "))
	assert.False(t, ValidateName("A"))
	assert.False(t, ValidateName(strings.Repeat("x", 101)))
}

func TestValidateMessageBody(t *testing.T) {
	assert.True(t, ValidateMessageBody("hello"))
	assert.False(t, ValidateMessageBody("   "))
	assert.False(t, ValidateMessageBody(""))
	assert.True(t, ValidateMessageBody(strings.Repeat("x", MaxMessageLength)))
	assert.False(t, ValidateMessageBody(strings.Repeat("x", MaxMessageLength+1)))
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, "alice@example.com", SanitizeEmail("  Alice@Example.COM "))
	assert.Equal(t, "hello", SanitizeString("  hello  ", 100))
	assert.Equal(t, "he", SanitizeString("hello", 2))
}
