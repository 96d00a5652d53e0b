package auth

import "github.com/flemzord/tgflow/pkg/record"

// Response is the output record of an auth step.
type Response struct {
	Success       bool                `json:"success"`
	Step          string              `json:"step,omitempty"`
	PhoneCodeHash string              `json:"phoneCodeHash,omitempty"`
	TempSession   string              `json:"tempSession,omitempty"`
	Timeout       *int                `json:"timeout,omitempty"`
	SessionString string              `json:"sessionString,omitempty"`
	User          *record.UserSummary `json:"user,omitempty"`
	Error         string              `json:"error,omitempty"`
	Message       string              `json:"message,omitempty"`
	NextStep      string              `json:"nextStep,omitempty"`
}

// Response renders the code request for the caller.
func (c CodeRequest) Response() Response {
	r := Response{
		Success:       true,
		Step:          "code_sent",
		PhoneCodeHash: c.PhoneCodeHash,
		TempSession:   c.TempSession.String(),
		Message:       `Code sent. Check the Telegram app or SMS, then run "submitCode".`,
		NextStep:      "submitCode",
	}
	if c.Timeout > 0 {
		r.Timeout = &c.Timeout
	}
	return r
}

// Response renders the outcome for the caller.
func (o Outcome) Response() Response {
	switch o.State {
	case StateAuthenticated:
		return Response{
			Success:       true,
			Step:          "authorized",
			SessionString: o.Session.String(),
			User:          o.User,
			Message:       "Signed in. Store the sessionString in the credentials.",
		}
	case StateTwoFactorRequired:
		return Response{
			Success:     true,
			Step:        "2fa_required",
			TempSession: o.Session.String(),
			Message:     `Two-factor authentication is enabled. Run "submit2FA" next.`,
			NextStep:    "submit2FA",
		}
	default:
		reason := o.Reason
		if reason == "" {
			reason = string(StateFailed)
		}
		r := Response{Error: reason}
		if reason == ReasonSignUpRequired {
			r.Message = "This phone number is not registered. Sign up in the Telegram app first."
		}
		return r
	}
}
