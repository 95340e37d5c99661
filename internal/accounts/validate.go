package accounts

import (
	"regexp"
	"strings"
)

const MinPasswordLength = 6

// MaxPasswordLength is the most bcrypt will hash.
const MaxPasswordLength = 72

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type signupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// validate returns the first problem with the request, or "" if it is
// acceptable.
func (req signupRequest) validate() string {
	switch {
	case strings.TrimSpace(req.Username) == "", strings.TrimSpace(req.Email) == "", req.Password == "":
		return "username, email and password are required"
	case !ValidEmail(req.Email):
		return "invalid email format"
	case len(req.Password) < MinPasswordLength:
		return "password must be at least 6 characters"
	case len(req.Password) > MaxPasswordLength:
		return "password must be at most 72 bytes"
	case req.Password != req.ConfirmPassword:
		return "passwords do not match"
	}
	return ""
}

func ValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}
