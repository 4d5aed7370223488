package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mail env:
// - SMTP_HOST (required to send)
// - SMTP_PORT (default 587)
// - SMTP_USERNAME / SMTP_PASSWORD (optional, relay-dependent)
// - MAIL_FROM (default no-reply@localhost)

func GetMailDialer() (*gomail.Dialer, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, errors.New("SMTP_HOST is not configured")
	}
	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			port = n
		}
	}
	return gomail.NewDialer(host, port, os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD")), nil
}

func GetMailFrom() string {
	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "no-reply@localhost"
	}
	return from
}
