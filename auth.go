package auctionhouse

import (
	"context"
)

// AuthClient handles login, registration and the current user's profile.
type AuthClient struct{ client *Client }

// Login exchanges credentials for a token. It does not change the client's token.
func (a *AuthClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	data, err := a.client.do(ctx, request{
		method:    "POST",
		path:      "/auth/login",
		body:      map[string]string{"email": email, "password": password},
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[AuthResult](data)
}

func (a *AuthClient) Register(ctx context.Context, opts *RegisterOptions) (*AuthResult, error) {
	data, err := a.client.do(ctx, request{
		method:    "POST",
		path:      "/auth/register",
		body:      map[string]*RegisterOptions{"user": opts},
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[AuthResult](data)
}

func (a *AuthClient) Me(ctx context.Context) (*User, error) {
	data, err := a.client.do(ctx, request{method: "GET", path: "/users/me"})
	if err != nil {
		return nil, err
	}
	return decodeWrapped[User](data, "user")
}

func (a *AuthClient) UpdateMe(ctx context.Context, opts *UpdateUserOptions) (*User, error) {
	data, err := a.client.do(ctx, request{
		method: "PUT",
		path:   "/users/me",
		body:   map[string]*UpdateUserOptions{"user": opts},
	})
	if err != nil {
		return nil, err
	}
	return decodeWrapped[User](data, "user")
}

func (a *AuthClient) Balance(ctx context.Context) (*Balance, error) {
	data, err := a.client.do(ctx, request{method: "GET", path: "/users/me/balance"})
	if err != nil {
		return nil, err
	}
	return decodeJSON[Balance](data)
}

func (a *AuthClient) UpdateBalance(ctx context.Context, amount float64) (*Balance, error) {
	data, err := a.client.do(ctx, request{
		method: "PUT",
		path:   "/users/me/balance",
		body:   map[string]float64{"balance": amount},
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[Balance](data)
}
