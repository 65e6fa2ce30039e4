package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/golang-jwt/jwt"
	"github.com/rolodex-app/directory-services/api/middleware"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSTSClient struct {
	mock.Mock
}

func (m *MockSTSClient) AssumeRoleWithWebIdentity(ctx context.Context,
	params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (
	*sts.AssumeRoleWithWebIdentityOutput, error) {

	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.AssumeRoleWithWebIdentityOutput), args.Error(1)
}

func credentialsRequest(token string, claims *authn.Claims) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/photos/credentials", nil)
	ctx := req.Context()
	if token != "" {
		ctx = context.WithValue(ctx, middleware.TokenKey, token)
	}
	if claims != nil {
		ctx = authn.WithClaims(ctx, *claims)
	}
	return req.WithContext(ctx)
}

func TestRequestPhotoCredentials(t *testing.T) {
	sc := &MockSTSClient{}
	expiry := time.Date(2024, 11, 13, 16, 36, 20, 0, time.UTC)
	sc.On("AssumeRoleWithWebIdentity", mock.Anything, mock.MatchedBy(func(in *sts.AssumeRoleWithWebIdentityInput) bool {
		return *in.WebIdentityToken == "valid-token" &&
			*in.RoleSessionName == "photos-user-1" &&
			strings.Contains(*in.Policy, "arn:aws:s3:::photos-bucket/private/eu-west-2:abc/*")
	})).Return(&sts.AssumeRoleWithWebIdentityOutput{
		Credentials: &types.Credentials{
			AccessKeyId:     aws.String("mockAccessKeyId"),
			SecretAccessKey: aws.String("mockSecretAccessKey"),
			SessionToken:    aws.String("mockSessionToken"),
			Expiration:      &expiry,
		},
	}, nil)

	claims := authn.Claims{StandardClaims: jwt.StandardClaims{Subject: "user-1"}, IdentityID: "eu-west-2:abc"}
	rr := httptest.NewRecorder()
	RequestPhotoCredentials("arn:aws:iam::123456789012:role/photos", "photos-bucket", sc).
		ServeHTTP(rr, credentialsRequest("valid-token", &claims))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var creds PhotoCredentials
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &creds))
	assert.Equal(t, "mockAccessKeyId", creds.AccessKeyId)
	assert.Equal(t, "mockSecretAccessKey", creds.SecretAccessKey)
	assert.Equal(t, "mockSessionToken", creds.SessionToken)
	assert.Equal(t, "2024-11-13T16:36:20Z", creds.Expiration)
	assert.Equal(t, "private/eu-west-2:abc/", creds.Prefix)
	sc.AssertExpectations(t)
}

func TestRequestPhotoCredentialsRejects(t *testing.T) {
	sc := &MockSTSClient{}
	handler := RequestPhotoCredentials("arn", "bucket", sc)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, credentialsRequest("", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, credentialsRequest("token", &authn.Claims{StandardClaims: jwt.StandardClaims{Subject: "u"}}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	sc.On("AssumeRoleWithWebIdentity", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, credentialsRequest("token", &authn.Claims{IdentityID: "id"}))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	Health(pingFunc(func(context.Context) error { return nil })).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	Health(pingFunc(func(context.Context) error { return errors.New("down") })).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
