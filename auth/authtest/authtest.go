// Package authtest provides test doubles for the auth package.
package authtest

import (
	"context"
	"fmt"

	"github.com/codegrep/mcp-codesearch-go/auth"
)

// Static accepts exactly one bearer token and attributes it to a fixed user.
// Anything else fails with auth.ErrUnauthorized.
type Static struct {
	Token  string
	UserID string
}

var _ auth.Authenticator = (*Static)(nil)

func (s *Static) CheckAuthentication(_ context.Context, tok string) (auth.UserInfo, error) {
	if tok != s.Token {
		return nil, fmt.Errorf("%w: unknown token", auth.ErrUnauthorized)
	}
	uid := s.UserID
	if uid == "" {
		uid = "test-user"
	}
	return staticUser{id: uid}, nil
}

type staticUser struct{ id string }

func (u staticUser) UserID() string       { return u.id }
func (u staticUser) Claims(ref any) error { return nil }
