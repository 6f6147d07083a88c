package validator

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"market/internal/usecase"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")
)

const minPasswordLength = 6

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, name string, email string, password string) error {
	// 必須チェック
	if strings.TrimSpace(name) == "" {
		return invalid("name is required")
	}
	if !isEmailLike(email) {
		return invalid("invalid email")
	}
	// パスワード最低文字数
	if len(password) < minPasswordLength {
		return invalid("password must be at least 6 characters")
	}
	if len(password) > 72 {
		// bcryptは72byteまで
		return invalid("password is too long")
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if !isEmailLike(email) || password == "" {
		return invalid("invalid email or password")
	}
	return nil
}

func invalid(msg string) error {
	return &usecase.HTTPError{
		Status:  http.StatusBadRequest,
		Message: msg,
		Code:    "INVALID_INPUT",
		Err:     ErrInvalidInput,
	}
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	// ドメインにドットが必要
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
