package member

import (
	"fmt"
	"regexp"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/secmun/podium/core"
)

var (
	orgRoleTag  = "orgrole"
	orgRoleText = "invalid role"

	orgOfficeTag  = "orgoffice"
	orgOfficeText = "invalid office"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")
)

// InitValidators registers the member-specific validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(orgRoleTag, orgRoleValidation)
	core.RegisterCustomTranslation(validate, translator, orgRoleTag, orgRoleText)

	_ = validate.RegisterValidation(orgOfficeTag, orgOfficeValidation)
	core.RegisterCustomTranslation(validate, translator, orgOfficeTag, orgOfficeText)

	validate.RegisterStructValidation(memberStructValidation, NewMember{})
	validate.RegisterStructValidation(memberStructValidation, UpdateMember{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
}

// Custom Validators

// orgRoleValidation checks that the provided role is in AllRoles.
func orgRoleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// orgOfficeValidation checks that the provided office is in AllOffices.
func orgOfficeValidation(fl validator.FieldLevel) bool {
	office := fl.Field().String()
	for _, o := range AllOffices {
		if office == o {
			return true
		}
	}
	return false
}

// memberStructValidation does struct level validation on NewMember and UpdateMember.
func memberStructValidation(sl validator.StructLevel) {
	switch mbr := sl.Current().Interface().(type) {
	case NewMember:
		validatePassword(mbr.Password, sl)
	case UpdateMember:
		if mbr.Password != "" {
			validatePassword(mbr.Password, sl)
		}
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
func validatePassword(pwd string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range []rune(pwd) {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		reportErr(pwdComplexityTag)
		return
	}
}
