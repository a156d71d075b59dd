// Package auth exchanges portal credentials for API tokens against the
// platform's Cognito user pools.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/onscale/onscale-go/internal/logging"
)

// ErrMissingCredentials is returned by Login when user name or password is
// empty.
var ErrMissingCredentials = errors.New("user name and password are required")

// Pool identifies one Cognito user pool.
type Pool struct {
	ID       string
	ClientID string
	Region   string
}

// The platform's user pools per portal environment.
var (
	productionPool = Pool{
		ID:       "us-east-1_CrB4zbqmu",
		ClientID: "7uhflf2megm48u2m7fte5g8eq3",
		Region:   "us-east-1",
	}
	testPool = Pool{
		ID:       "us-east-1_OMUB8v30W",
		ClientID: "7uhflf2megm48u2m7fte5g8eq3",
		Region:   "us-east-1",
	}
)

// PoolForPortal maps a portal name to its user pool. Unknown portals use
// the production pool.
func PoolForPortal(portal string) Pool {
	if strings.HasPrefix(portal, "test") {
		return testPool
	}
	return productionPool
}

// Tokens are the results of a successful login. The ID token doubles as the
// portal's API bearer token.
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string

	// ExpiresIn is the token validity in seconds.
	ExpiresIn int32
}

// Authenticator logs users into one portal's user pool.
type Authenticator struct {
	client *cognitoidentityprovider.Client
	pool   Pool
	log    *logging.Logger
}

// NewAuthenticator creates an authenticator for portal. The user pool is
// public: requests are unsigned and need no AWS credentials.
func NewAuthenticator(ctx context.Context, portal string) (*Authenticator, error) {
	pool := PoolForPortal(portal)
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(pool.Region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure authenticator: %w", err)
	}
	return &Authenticator{
		client: cognitoidentityprovider.NewFromConfig(cfg),
		pool:   pool,
		log:    logging.Global(),
	}, nil
}

// Login exchanges a user name and password for tokens.
func (a *Authenticator) Login(ctx context.Context, userName, password string) (*Tokens, error) {
	if userName == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := a.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(a.pool.ClientID),
		AuthParameters: map[string]string{
			"USERNAME": userName,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("login failed for %s: %w", userName, err)
	}
	if resp.AuthenticationResult == nil || resp.AuthenticationResult.IdToken == nil {
		return nil, fmt.Errorf("login for %s returned no token", userName)
	}

	a.log.Debug().Str("user", userName).Msg("login succeeded")
	return tokensFromResult(resp.AuthenticationResult), nil
}

// Refresh exchanges a refresh token for fresh tokens. The refresh token
// itself is not rotated and stays valid.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	resp, err := a.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(a.pool.ClientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if resp.AuthenticationResult == nil || resp.AuthenticationResult.IdToken == nil {
		return nil, errors.New("token refresh returned no token")
	}

	tokens := tokensFromResult(resp.AuthenticationResult)
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func tokensFromResult(result *types.AuthenticationResultType) *Tokens {
	tokens := &Tokens{ExpiresIn: result.ExpiresIn}
	if result.IdToken != nil {
		tokens.IDToken = *result.IdToken
	}
	if result.AccessToken != nil {
		tokens.AccessToken = *result.AccessToken
	}
	if result.RefreshToken != nil {
		tokens.RefreshToken = *result.RefreshToken
	}
	return tokens
}
