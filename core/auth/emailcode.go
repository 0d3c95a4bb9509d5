package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/dmitrymomot/gatekeeper/core/handoff"
	"github.com/dmitrymomot/gatekeeper/core/logger"
	"github.com/dmitrymomot/gatekeeper/core/notify"
	"github.com/dmitrymomot/gatekeeper/pkg/secrets"
)

const codeDigits = 6

// MaxCodeAttempts is how many verifications a code ticket allows, right or wrong.
const MaxCodeAttempts = 5

var codeSpace = big.NewInt(1_000_000)

// SendStepUpCode mails a one-time code to the pending login's address and
// returns a code ticket that VerifyStepUpCode accepts together with the code.
func (s *Service) SendStepUpCode(ctx context.Context, twoFactorTicket string) (string, error) {
	if s.notifier == nil {
		return "", ErrNoNotifier
	}
	pending, err := s.PendingLogin(twoFactorTicket)
	if err != nil {
		return "", err
	}

	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := fmt.Sprintf("%0*d", codeDigits, n.Int64())

	salt, err := secrets.RandomHex(16)
	if err != nil {
		return "", err
	}
	tok, err := s.codecs.EmailCode.Encode(handoff.EmailCode{
		TwoFactor: pending,
		Salt:      salt,
		CodeMAC:   s.codeMAC(salt, pending.UserID, code),
	})
	if err != nil {
		return "", err
	}

	err = s.notifier.Send(ctx, notify.Message{
		Channel:        notify.ChannelEmail,
		To:             pending.Email,
		Subject:        "Your sign-in code",
		Body:           "<p>Your sign-in code is <strong>" + code + "</strong>.</p><p>It expires in 10 minutes.</p>",
		Tag:            "step-up-code",
		IdempotencyKey: salt,
	})
	if err != nil {
		return "", err
	}
	return tok, nil
}

// VerifyStepUpCode checks code against the code ticket and returns the pending
// login. Each ticket allows MaxCodeAttempts tries and is admitted once when a
// guard is configured.
func (s *Service) VerifyStepUpCode(ctx context.Context, codeTicket, code string) (handoff.TwoFactor, error) {
	ec, h, err := s.codecs.EmailCode.Decode(codeTicket)
	if err != nil {
		return handoff.TwoFactor{}, errors.Join(ErrInvalidTicket, err)
	}
	n, err := s.attempts.Attempt(ctx, h.Nonce, h.Expires())
	if err != nil {
		return handoff.TwoFactor{}, fmt.Errorf("count attempt: %w", err)
	}
	if n > MaxCodeAttempts {
		return handoff.TwoFactor{}, ErrTooManyAttempts
	}
	if len(code) != codeDigits || !hmac.Equal([]byte(ec.CodeMAC), []byte(s.codeMAC(ec.Salt, ec.UserID, code))) {
		return handoff.TwoFactor{}, ErrCodeMismatch
	}
	if err := handoff.Check(ctx, s.guard, h.Nonce, h.Expires()); err != nil {
		return handoff.TwoFactor{}, errors.Join(ErrInvalidTicket, err)
	}
	return ec.TwoFactor, nil
}

func (s *Service) codeMAC(salt, userID, code string) string {
	m := hmac.New(sha256.New, s.codeKey)
	m.Write([]byte(salt))
	m.Write([]byte{0})
	m.Write([]byte(userID))
	m.Write([]byte{0})
	m.Write([]byte(code))
	return hex.EncodeToString(m.Sum(nil))
}

type codeStartRequest struct {
	TwoFactorTicket string `json:"twoFactorTicket"`
}

type codeStartResponse struct {
	Ticket string `json:"ticket"`
}

type codeVerifyRequest struct {
	Ticket string `json:"ticket"`
	Code   string `json:"code"`
}

// EmailCodeStartHandler serves POST {"twoFactorTicket"}, mails a code and
// answers with the code ticket.
func (s *Service) EmailCodeStartHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noStore(w)
		if s.notifier == nil {
			writeError(w, http.StatusNotFound, CodeDeliveryFailed)
			return
		}

		var req codeStartRequest
		if !decode(w, r, &req) {
			return
		}

		tok, err := s.SendStepUpCode(r.Context(), req.TwoFactorTicket)
		switch {
		case errors.Is(err, ErrInvalidTicket):
			s.log.InfoContext(r.Context(), "email code start rejected", logger.Error(err))
			writeError(w, http.StatusBadRequest, CodeInvalidTicket)
			return
		case err != nil:
			s.log.ErrorContext(r.Context(), "email code delivery failed", logger.Error(err))
			writeError(w, http.StatusBadGateway, CodeDeliveryFailed)
			return
		}
		writeJSON(w, http.StatusOK, codeStartResponse{Ticket: tok})
	})
}

// EmailCodeVerifyHandler serves POST {"ticket","code"} and signs the user in.
func (s *Service) EmailCodeVerifyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noStore(w)

		var req codeVerifyRequest
		if !decode(w, r, &req) {
			return
		}

		pending, err := s.VerifyStepUpCode(r.Context(), req.Ticket, req.Code)
		if err != nil {
			s.log.InfoContext(r.Context(), "email code rejected", logger.Error(err))
			switch {
			case errors.Is(err, ErrCodeMismatch):
				writeError(w, http.StatusUnauthorized, CodeStepUpFailed)
			case errors.Is(err, ErrTooManyAttempts):
				writeError(w, http.StatusTooManyRequests, CodeTooManyTries)
			case errors.Is(err, ErrInvalidTicket):
				writeError(w, http.StatusBadRequest, CodeInvalidTicket)
			default:
				writeError(w, http.StatusServiceUnavailable, CodeStepUpFailed)
			}
			return
		}

		if _, err := s.CompleteStepUp(r.Context(), w, r, pending); err != nil {
			s.log.ErrorContext(r.Context(), "session issue failed", logger.UserID(pending.UserID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, CodeStepUpFailed)
			return
		}
		writeJSON(w, http.StatusOK, finishResponse{Next: s.NextLocation(r.Context(), r, pendingLogin(pending))})
	})
}
