package util

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt"
)

const AdminRole = "ADMIN"

func IsValidAdminToken(secret string, tokenString string) bool {
	slog.Info("管理者トークンを検証します")
	if secret == "" {
		slog.Warn("シークレットが設定されていません")
		return false
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		slog.Warn("トークンの検証に失敗しました", "error", err)
		return false
	}
	if !token.Valid {
		slog.Warn("トークンの有効期限が切れています")
		return false
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		if claims["role"] == AdminRole {
			slog.Info("トークンが有効です")
			return true
		}
	} else {
		slog.Warn("クレームの取得に失敗しました")
	}
	return false
}

func NewAdminToken(secret string, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("シークレットが設定されていません")
	}
	claims := jwt.MapClaims{
		"role": AdminRole,
		"sub":  subject,
		"iat":  time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
