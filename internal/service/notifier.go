package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/ubuntu-network/api/internal/config"
	"github.com/ubuntu-network/api/internal/phone"
)

// Notifier delivers a verification code to a phone number out of band.
type Notifier interface {
	Send(ctx context.Context, phoneNumber, code string) error
}

func otpMessage(code string, validity time.Duration) string {
	return fmt.Sprintf("Your Ubuntu Network verification code is: %s. Valid for %s. Do not share this code.", code, validityText(validity))
}

func validityText(d time.Duration) string {
	if d <= 0 || d%time.Minute != 0 {
		return d.String()
	}
	if minutes := int64(d / time.Minute); minutes != 1 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return "1 minute"
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier sends codes by SMS through the Twilio messages API.
type TwilioNotifier struct {
	api      messageCreator
	from     string
	validity time.Duration
	logger   *logrus.Logger
}

// NewTwilioNotifier quotes validity, the OTP expiry, in every message.
func NewTwilioNotifier(cfg *config.TwilioConfig, validity time.Duration, logger *logrus.Logger) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioNotifier{
		api:      client.Api,
		from:     cfg.PhoneNumber,
		validity: validity,
		logger:   logger,
	}
}

func (n *TwilioNotifier) Send(ctx context.Context, phoneNumber, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetFrom(n.from)
	params.SetBody(otpMessage(code, n.validity))

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		n.logger.WithError(err).WithField("phone", phone.Mask(phoneNumber)).Error("Failed to send SMS")
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	entry := n.logger.WithField("phone", phone.Mask(phoneNumber))
	if resp != nil && resp.Sid != nil {
		entry = entry.WithField("message_sid", *resp.Sid)
	}
	entry.Info("SMS sent")
	return nil
}

// LogNotifier writes the code to the log instead of sending it. It is only
// wired outside production.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, phoneNumber, code string) error {
	if phoneNumber == "" {
		return errors.New("missing recipient")
	}
	n.logger.WithFields(logrus.Fields{
		"phone": phoneNumber,
		"otp":   code,
	}).Warn("OTP generated (logged for development, configure TWILIO_* for real SMS)")
	return nil
}
