package mtproto

import (
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	"github.com/flemzord/tgflow/internal/errs"
)

// notFoundTypes are server rejections meaning the identifier does not map
// to any peer.
var notFoundTypes = []string{
	"USERNAME_NOT_OCCUPIED",
	"USERNAME_INVALID",
	"PHONE_NOT_OCCUPIED",
	"PEER_ID_INVALID",
	"CHANNEL_INVALID",
	"CHAT_ID_INVALID",
	"USER_ID_INVALID",
	"INVITE_HASH_INVALID",
	"INVITE_HASH_EXPIRED",
}

// Wrap maps a gotd failure onto the errs taxonomy. Transport failures are
// returned unchanged.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrPasswordNeeded) || errors.Is(err, errs.ErrSignUpRequired) ||
		errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrCodeRequired) {
		return err
	}
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return fmt.Errorf("%w: %w", errs.ErrPasswordNeeded, err)
	}
	var signUp *auth.SignUpRequired
	if errors.As(err, &signUp) {
		return fmt.Errorf("%w: %w", errs.ErrSignUpRequired, err)
	}

	var rpcErr *tgerr.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	perr := &errs.ProtocolError{Code: rpcErr.Code, Type: rpcErr.Type, Message: rpcErr.Message}
	switch {
	case rpcErr.IsOneOf(notFoundTypes...):
		return fmt.Errorf("%w: %w", errs.ErrNotFound, perr)
	case rpcErr.IsType("SESSION_PASSWORD_NEEDED"):
		return fmt.Errorf("%w: %w", errs.ErrPasswordNeeded, perr)
	case rpcErr.IsType("PHONE_NUMBER_UNOCCUPIED"):
		return fmt.Errorf("%w: %w", errs.ErrSignUpRequired, perr)
	default:
		return perr
	}
}
