package aggregates

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/passhash"
)

const (
	DefaultPasswordResetTTL = time.Hour
	resetTokenBytes         = 32
	maxPasswordLength       = 64
)

type PasswordResetAggregateDeps struct {
	Base BaseDeps

	Users  repos.UserRepo
	Tokens repos.PasswordResetTokenRepo

	TTL time.Duration
	// TokenParams and PasswordParams default to passhash.Token and passhash.Password.
	TokenParams    *passhash.Params
	PasswordParams *passhash.Params
}

type passwordResetAggregate struct {
	deps PasswordResetAggregateDeps
}

func NewPasswordResetAggregate(deps PasswordResetAggregateDeps) domainagg.PasswordResetAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.TTL <= 0 {
		deps.TTL = DefaultPasswordResetTTL
	}
	if deps.TokenParams == nil {
		p := passhash.Token
		deps.TokenParams = &p
	}
	if deps.PasswordParams == nil {
		p := passhash.Password
		deps.PasswordParams = &p
	}
	return &passwordResetAggregate{deps: deps}
}

func (a *passwordResetAggregate) Contract() domainagg.Contract {
	return domainagg.PasswordResetAggregateContract
}

func (a *passwordResetAggregate) IssueToken(ctx context.Context, in domainagg.IssueResetTokenInput) (domainagg.IssueResetTokenResult, error) {
	const op = "Auth.PasswordReset.IssueToken"
	var out domainagg.IssueResetTokenResult
	in.Email = strings.TrimSpace(in.Email)
	if in.UserID == uuid.Nil && in.Email == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id or email", nil)
	}
	if a.deps.Users == nil || a.deps.Tokens == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "password reset repos not configured", nil)
	}
	at := a.deps.Base.now(in.At)

	token, err := passhash.RandomToken(resetTokenBytes)
	if err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	salt, err := passhash.NewSalt(a.deps.TokenParams.SaltLen)
	if err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	hash := a.deps.TokenParams.Key(token, salt)

	err = executeWrite(ctx, a.deps.Base, userWrite(op, EntityResetToken, in.UserID), func(dbc dbctx.Context) error {
		if in.UserID == uuid.Nil {
			byEmail, err := a.deps.Users.GetByEmail(dbc, in.Email)
			if err != nil {
				return err
			}
			if byEmail == nil {
				return domainagg.NewError(domainagg.CodeNotFound, op, "no user with that email", nil)
			}
			in.UserID = byEmail.ID
		}
		// The user row lock orders concurrent issues so versions stay dense.
		u, err := a.deps.Users.LockByID(dbc, in.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("user not found: %s", in.UserID), nil)
		}
		maxVersion, err := a.deps.Tokens.MaxVersion(dbc, in.UserID)
		if err != nil {
			return err
		}
		row := &types.PasswordResetToken{
			UserID:    in.UserID,
			Version:   maxVersion + 1,
			Salt:      base64.RawStdEncoding.EncodeToString(salt),
			TokenHash: base64.RawStdEncoding.EncodeToString(hash),
			Lookup:    passhash.Fingerprint(token),
			ExpiresAt: at.Add(a.deps.TTL),
			CreatedAt: at,
		}
		if err := a.deps.Tokens.Create(dbc, row); err != nil {
			return err
		}
		out = domainagg.IssueResetTokenResult{UserID: in.UserID, Token: token, Version: row.Version, ExpiresAt: row.ExpiresAt}
		return nil
	})
	if err != nil {
		return domainagg.IssueResetTokenResult{}, err
	}
	return out, nil
}

// Redeem checks, in order: no match, already used, superseded by a newer version, expired.
func (a *passwordResetAggregate) Redeem(ctx context.Context, in domainagg.RedeemResetTokenInput) (domainagg.RedeemResetTokenResult, error) {
	const op = "Auth.PasswordReset.Redeem"
	var out domainagg.RedeemResetTokenResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	token := strings.TrimSpace(in.Token)
	if token == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing token", nil)
	}
	if a.deps.Users == nil || a.deps.Tokens == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "password reset repos not configured", nil)
	}
	var newHash string
	if in.NewPassword != "" {
		if err := ValidatePassword(in.NewPassword); err != nil {
			return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
		}
		h, err := a.deps.PasswordParams.Hash(in.NewPassword)
		if err != nil {
			return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		newHash = h
	}
	at := a.deps.Base.now(in.At)

	err := executeWrite(ctx, a.deps.Base, userWrite(op, EntityResetToken, in.UserID), func(dbc dbctx.Context) error {
		rows, err := a.deps.Tokens.LockByUser(dbc, in.UserID)
		if err != nil {
			return err
		}
		match, maxVersion := a.findToken(rows, token)
		switch {
		case match == nil:
			return domainagg.NewError(domainagg.CodeNotFound, op, "reset token not found", nil)
		case match.Used:
			return domainagg.NewError(domainagg.CodeAlreadyUsed, op, "reset token already used", nil)
		case match.Version < maxVersion:
			return domainagg.NewError(domainagg.CodeSuperseded, op,
				fmt.Sprintf("token version %d superseded by %d", match.Version, maxVersion), nil)
		case !at.Before(match.ExpiresAt):
			return domainagg.NewError(domainagg.CodeExpired, op, "reset token expired", nil)
		}
		ok, err := a.deps.Tokens.MarkUsed(dbc, match.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.NewError(domainagg.CodeAlreadyUsed, op, "reset token already used", nil)
		}
		out = domainagg.RedeemResetTokenResult{Version: match.Version, RedeemedAt: at}
		if newHash != "" {
			if err := a.deps.Users.UpdatePasswordHash(dbc, in.UserID, newHash); err != nil {
				return err
			}
			out.PasswordChanged = true
		}
		return nil
	})
	if err != nil {
		return domainagg.RedeemResetTokenResult{}, err
	}
	return out, nil
}

// findToken runs Argon2 only against the row whose fingerprint matches, so
// redemption cost does not grow with the number of issued tokens.
func (a *passwordResetAggregate) findToken(rows []*types.PasswordResetToken, token string) (*types.PasswordResetToken, int) {
	var (
		match      *types.PasswordResetToken
		maxVersion int
	)
	lookup := passhash.Fingerprint(token)
	for _, r := range rows {
		if r.Version > maxVersion {
			maxVersion = r.Version
		}
		if match != nil || subtle.ConstantTimeCompare([]byte(r.Lookup), []byte(lookup)) != 1 {
			continue
		}
		salt, err := base64.RawStdEncoding.DecodeString(r.Salt)
		if err != nil {
			continue
		}
		want, err := base64.RawStdEncoding.DecodeString(r.TokenHash)
		if err != nil {
			continue
		}
		if passhash.Equal(a.deps.TokenParams.Key(token, salt), want) {
			match = r
		}
	}
	return match, maxVersion
}

// ValidatePassword enforces the account password rules: non-empty, at most 64 characters.
func ValidatePassword(pw string) error {
	if strings.TrimSpace(pw) == "" {
		return fmt.Errorf("password must not be empty")
	}
	if utf8.RuneCountInString(pw) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}
	return nil
}
