package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/advisorhub/pkg/errors"
)

type signupForm struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=2"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(&signupForm{Email: "a@b.co", FullName: "Ann"}))

	err := ValidateStruct(&signupForm{Email: "nope"})
	appErr, ok := errors.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, errors.CodeInvalidRequest, appErr.Code())
		assert.Equal(t, "must be a valid email address", appErr.Metadata()["email"])
		assert.Equal(t, "is required", appErr.Metadata()["full_name"])
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correcthorse1"))
	assert.Error(t, ValidatePassword("short1"))
	assert.Error(t, ValidatePassword("onlylettershere"))
	assert.Error(t, ValidatePassword("1234567890123"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-advisory-llc", Slugify("  Acme Advisory, LLC "))
	assert.Equal(t, "o-brien-partners", Slugify("O'Brien & Partners"))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "Q3_plan_v2.docx", SanitizeFileName("Q3 plan v2.docx"))
	assert.Equal(t, "report.pdf", SanitizeFileName(`C:\Users\x\report.pdf`))
	assert.Equal(t, "file", SanitizeFileName(".."))
}

func TestTruncateAndMask(t *testing.T) {
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := GenerateTemporaryPassword(16)
		assert.NoError(t, err)
		assert.Len(t, pw, 16)
		assert.NoError(t, ValidatePassword(pw))
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 1)
}
