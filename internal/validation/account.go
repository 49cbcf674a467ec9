package validation

import (
	"net/mail"
	"strings"
	"unicode"
)

// MinPasswordLength — минимальная длина пароля.
const MinPasswordLength = 8

// IsValidEmail проверяет синтаксис адреса электронной почты.
func IsValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// IsStrongPassword проверяет, что пароль не короче MinPasswordLength и
// содержит хотя бы одну букву и одну цифру.
func IsStrongPassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength {
		return false
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
