package user

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/educonnect/backend/core"
)

var (
	userRoleTag  = "userrole"
	userRoleText = "role must be one of: student, teacher"

	identityTag  = "identity"
	identityText = "teachers sign up with an email, students with a registration number"

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

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"

	commonPasswords = []string{
		"000000", "111111", "123123", "123321", "1234567", "12345678", "123456789",
		"1234567890", "654321", "666666", "696969", "Passw0rd!", "abc123", "azerty",
		"baseball", "basketball", "charlie", "dragon", "football", "iloveyou",
		"letmein", "master", "monkey", "mustang", "password", "password1",
		"password123", "qwerty", "qwerty123", "shadow", "soccer", "starwars",
		"sunshine", "superman", "trustno1", "welcome", "whatever",
	}
)

func init() {
	sort.Strings(commonPasswords)
}

func initValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(userRoleTag, userRoleValidation)
	core.RegisterCustomTranslation(validate, translator, userRoleTag, userRoleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{})
	validate.RegisterStructValidation(userStructValidation, UpdateUser{})
	core.RegisterCustomTranslation(validate, translator, identityTag, identityText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

// Custom Validators

// userRoleValidation checks that the provided role is a known Role.
func userRoleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsValid()
}

// userStructValidation does struct level validation on NewUser and UpdateUser structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validateIdentity(usr, sl)
		// empty passwords are the `required` tag's business
		if usr.Password != "" {
			validatePassword(usr.Password, usr.Name, usr.Email, usr.RegistrationNumber, sl)
		}
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.Name, usr.Email, usr.RegistrationNumber, sl)
		}
	}
}

// validateIdentity checks that the role-matching identity field is provided:
// teachers are keyed by email, students by registration number. Students may
// still carry an email as a contact address.
func validateIdentity(nu NewUser, sl validator.StructLevel) {
	switch nu.Role {
	case RoleTeacher:
		if nu.Email == "" || nu.RegistrationNumber != "" {
			sl.ReportError(nu.Email, "email", "Email", identityTag, "")
		}
	case RoleStudent:
		if nu.RegistrationNumber == "" {
			sl.ReportError(nu.RegistrationNumber, "registration_number", "RegistrationNumber", identityTag, "")
		}
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func validatePassword(pwd, name, email, regNum string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
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

	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		reportErr(pwdComplexityTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim ||
		getRatio(pwd, email) >= pwdMaxSim ||
		getRatio(pwd, regNum) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		if match := commonPasswords[idx]; lpwd == match {
			reportErr(pwdNoCommonTag)
			return
		}
	}
}
