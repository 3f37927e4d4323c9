package models

import "time"

type SessionToken struct {
	Token     string        `json:"token"`
	TokenType string        `json:"tokenType"`
	JTI       string        `json:"-"`
	ExpiresAt time.Time     `json:"expiresAt"`
	ExpiresIn time.Duration `json:"-"`
}
