package store

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// InviteCodeLength is the fixed length of community invite codes.
const InviteCodeLength = 8

const maxInviteAttempts = 32

// ErrInviteExhausted is returned when no free invite code was found within
// the retry cap.
var ErrInviteExhausted = errors.New("invite code generation exhausted retries")

// NewInviteCode draws a random 8-character code from the invite alphabet.
func NewInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// generateUnique redraws until taken reports the code free, capped at
// maxInviteAttempts.
func generateUnique(ctx context.Context, taken func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < maxInviteAttempts; i++ {
		code, err := NewInviteCode()
		if err != nil {
			return "", err
		}
		inUse, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", ErrInviteExhausted
}

// EnsureInviteCode returns the community's invite code, generating and
// persisting one if it does not have one yet. The uniqueness check is a
// lookup, so a concurrent writer can still win the race; the unique index
// rejects the loser, which then re-reads the stored code.
func (s *Communities) EnsureInviteCode(ctx context.Context, id primitive.ObjectID) (string, error) {
	community, err := s.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if community.InviteCode != "" {
		return community.InviteCode, nil
	}

	code, err := generateUnique(ctx, s.inviteCodeTaken)
	if err != nil {
		return "", err
	}

	switch err := s.setInviteCode(ctx, id, code); {
	case err == nil:
		return code, nil
	case errors.Is(err, ErrDuplicate):
		community, err := s.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		if community.InviteCode == "" {
			return "", ErrInviteExhausted
		}
		return community.InviteCode, nil
	default:
		return "", err
	}
}
