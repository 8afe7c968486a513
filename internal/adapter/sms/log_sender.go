package sms

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes OTP codes to the log. Development only.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

// SendOTP implements ports.OTPSender.
func (s *LogSender) SendOTP(_ context.Context, destination, code string) error {
	s.log.Info().Str("to", destination).Str("otp", code).Msg("sms: otp (log provider)")
	return nil
}
