package auth

import (
	"context"
	"errors"
)

// Registration walks a new user through the three-step sign-up flow:
// request an OTP, verify it, then choose a PIN. The pending phone number
// lives on the flow object, so concurrent registrations cannot clobber each
// other.
type Registration struct {
	client    *Client
	bypassOTP bool

	phone    string
	verified bool
}

// NewRegistration starts a registration flow. With bypassOTP set, the OTP
// steps succeed without contacting the SMS gateway and the account is created
// directly from the PIN step.
func NewRegistration(client *Client, bypassOTP bool) *Registration {
	return &Registration{client: client, bypassOTP: bypassOTP}
}

// Start records the phone number and requests an OTP.
func (r *Registration) Start(ctx context.Context, phone string) error {
	r.phone = NormalizePhone(phone)
	r.verified = false

	if r.bypassOTP {
		return nil
	}
	return r.client.SendOTP(ctx, r.phone)
}

// Verify confirms the SMS code. In bypass mode any code is accepted.
func (r *Registration) Verify(ctx context.Context, code string) error {
	if r.phone == "" {
		return errors.New("no registration in progress")
	}

	if r.bypassOTP {
		r.verified = true
		return nil
	}

	if _, err := r.client.VerifyOTP(ctx, r.phone, code); err != nil {
		return err
	}
	r.verified = true
	return nil
}

// CreatePin finishes the flow. In bypass mode this creates the account with
// the phone and PIN in one call; otherwise it sets the PIN on the user the
// OTP verification signed in.
func (r *Registration) CreatePin(ctx context.Context, pin string) (*Session, error) {
	if r.phone == "" {
		return nil, errors.New("no registration in progress")
	}
	if !r.verified {
		return nil, errors.New("phone number not verified yet")
	}

	if r.bypassOTP {
		session, err := r.client.SignUp(ctx, r.phone, pin)
		if err != nil {
			return nil, err
		}
		r.phone = ""
		r.verified = false
		return session, nil
	}

	if err := r.client.SetPin(ctx, pin); err != nil {
		return nil, err
	}
	session := r.client.CurrentSession()
	r.phone = ""
	r.verified = false
	return session, nil
}

// Phone returns the number the flow is registering, for display.
func (r *Registration) Phone() string {
	return r.phone
}
