package user

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

func init() {
	core.RegisterValidation(roleTag, roleText, roleValidation)

	core.Validate.RegisterStructValidation(userStructValidation, NewUser{})
	for tag, text := range map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	} {
		core.RegisterCustomTranslation(core.Validate, core.Translator, tag, text)
	}
}

// roleValidation accepts any known spelling of a role.
func roleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(string); ok {
		return access.IsValidRole(role)
	}
	return false
}

func userStructValidation(sl validator.StructLevel) {
	if usr, ok := sl.Current().Interface().(NewUser); ok {
		if tag := passwordPolicyTag(usr.Password, usr.DisplayName, usr.Email); tag != "" {
			sl.ReportError(usr.Password, "password", "Password", tag, "")
		}
	}
}

// passwordPolicyTag applies the password policy and returns the tag of the first broken rule:
// - minLen: 8
// - no whitespace
// - not all numeric
// - not similar to the user's attributes
func passwordPolicyTag(pwd string, attrs ...string) string {
	if pwd == "" {
		return "" // reported by "required"
	}

	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range runes {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(runes) {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		attr = strings.ToLower(attr)
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio > pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}

// validatePassword checks a standalone password against the policy.
func validatePassword(pwd string, usr User) error {
	if pwd == "" {
		return core.NewFieldValidationError("password", "this field is required")
	}
	if tag := passwordPolicyTag(pwd, usr.DisplayName, usr.Email); tag != "" {
		msg, _ := core.Translator.T(tag, "password")
		return core.NewFieldValidationError("password", msg)
	}
	return nil
}
