package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Rounds
const (
	RoundInitial = "initial"
	RoundFinal   = "final"
)

// Rating scale
const (
	MinScore = 1
	MaxScore = 5
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	roundTag  = "round"
	roundText = "round must be one of: initial, final"

	classCodeTag   = "classcode"
	classCodeText  = "class must look like YEAR-SEMESTER (e.g. 3-2)"
	classCodeRegex = regexp.MustCompile(`^[1-4]-[1-2]$`)

	yearRangeTag   = "yearrange"
	yearRangeText  = "year must look like YYYY-YYYY (e.g. 2025-2029)"
	yearRangeRegex = regexp.MustCompile(`^\d{4}-\d{4}$`)

	scoreTag  = "score"
	scoreText = "score must be between 1 and 5"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(roundTag, roundValidation)
	RegisterCustomTranslation(validate, translator, roundTag, roundText)

	_ = validate.RegisterValidation(classCodeTag, classCodeValidation)
	RegisterCustomTranslation(validate, translator, classCodeTag, classCodeText)

	_ = validate.RegisterValidation(yearRangeTag, yearRangeValidation)
	RegisterCustomTranslation(validate, translator, yearRangeTag, yearRangeText)

	_ = validate.RegisterValidation(scoreTag, scoreValidation)
	RegisterCustomTranslation(validate, translator, scoreTag, scoreText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func roundValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case RoundInitial, RoundFinal:
		return true
	}
	return false
}

func classCodeValidation(fl validator.FieldLevel) bool {
	return classCodeRegex.MatchString(fl.Field().String())
}

func yearRangeValidation(fl validator.FieldLevel) bool {
	return yearRangeRegex.MatchString(fl.Field().String())
}

// scoreValidation accepts ratings of the 1-5 scale.
func scoreValidation(fl validator.FieldLevel) bool {
	score := fl.Field().Int()
	return score >= MinScore && score <= MaxScore
}
