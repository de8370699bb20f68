package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("kalma ", n))
}

func TestCatalogContents(t *testing.T) {
	ids := func(ls []Language) (out []string) {
		for _, l := range ls {
			out = append(out, l.ID)
		}
		return out
	}
	assert.Equal(t, []string{"Hausa", "Yoruba", "Igbo", "English", "Arabic"}, ids(Languages()))

	vs := Voices()
	require.Len(t, vs, 6)
	var male, female int
	for _, v := range vs {
		switch v.Gender {
		case Male:
			male++
		case Female:
			female++
		}
	}
	assert.Equal(t, 3, male)
	assert.Equal(t, 3, female)
}

func TestLanguagesReturnsCopy(t *testing.T) {
	ls := Languages()
	ls[0].Name = "changed"
	l, ok := LookupLanguage("Hausa")
	require.True(t, ok)
	assert.Equal(t, "Hausa", l.Name)
}

func TestDefaultsAreInCatalog(t *testing.T) {
	_, ok := LookupLanguage(DefaultLanguage)
	assert.True(t, ok)
	_, ok = LookupVoice(DefaultVoice)
	assert.True(t, ok)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount(" \n\t "))
	assert.Equal(t, 2, WordCount("  Hello   world \n"))
	assert.Equal(t, 3, WordCount("Sannu\tda\nzuwa"))
}

func TestNormalizeComposesDiacritics(t *testing.T) {
	decomposed := "E\u0300de\u0300 Yoru\u0300ba\u0301"
	assert.Equal(t, "Èdè Yorùbá", Normalize("  "+decomposed+"\n"))
}

func TestValidateWordLimitBoundary(t *testing.T) {
	assert.NoError(t, Validate(words(MaxWords), "Hausa", "Kore"))

	err := Validate(words(MaxWords+1), "Hausa", "Kore")
	assert.ErrorIs(t, err, ErrWordLimit)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		assert.ErrorIs(t, Validate(text, "Hausa", "Kore"), ErrEmptyText)
	}
}

func TestValidateUnknownSelections(t *testing.T) {
	err := Validate("hello", "Klingon", "Kore")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
	assert.ErrorIs(t, err, ErrValidation)

	err = Validate("hello", "English", "HAL")
	assert.ErrorIs(t, err, ErrUnknownVoice)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "voice", ve.Field)
	assert.Equal(t, "Unsupported voice.", ve.Message)
}
