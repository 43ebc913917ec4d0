package main

import (
	"errors"
	"strings"
)

type Settings struct {
	Port           int    `env:"PORT,default=4000"`
	BasePath       string `env:"BASE_PATH"`
	LogEncoding    string `env:"LOG_ENCODING,default=console"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=*"`
	SendBufferSize int    `env:"SEND_BUFFER_SIZE,default=64"`

	PushEnabled     bool   `env:"PUSH_ENABLED,default=false"`
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"VAPID_SUBJECT,default=mailto:admin@example.com"`
	PushTTL         int    `env:"PUSH_TTL,default=60"`
	PushConcurrency int    `env:"PUSH_CONCURRENCY,default=16"`
}

func (s Settings) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(s.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}

// Validate reports settings the process cannot start with.
func (s Settings) Validate() error {
	var errs []error

	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}

	if s.SendBufferSize <= 0 {
		errs = append(errs, errors.New("SEND_BUFFER_SIZE must be positive"))
	}

	if s.PushEnabled {
		if s.VAPIDPublicKey == "" || s.VAPIDPrivateKey == "" {
			errs = append(errs, errors.New("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY are required when PUSH_ENABLED is set"))
		}

		if s.VAPIDSubject == "" {
			errs = append(errs, errors.New("VAPID_SUBJECT is required when PUSH_ENABLED is set"))
		}
	}

	return errors.Join(errs...)
}
