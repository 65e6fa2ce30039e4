package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rolodex-app/directory-services/api/middleware"
	"github.com/rolodex-app/directory-services/api/services"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rs/zerolog"
)

const TimeFormat string = "2006-01-02T15:04:05Z"

// maxSessionName is the STS limit on RoleSessionName.
const maxSessionName = 64

type PhotoCredentials struct {
	AccessKeyId     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secret"`
	SessionToken    string `json:"sessionToken"`
	Expiration      string `json:"expiration"`
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
}

func GetPhotoURL(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetPhotoURLService(svc, w, r)
	}
}

// RequestPhotoCredentials exchanges the caller's token for storage
// credentials limited to their own private photo prefix.
func RequestPhotoCredentials(roleArn, bucket string, c services.STSClient) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		logger := zerolog.Ctx(r.Context()).With().Str("role arn", roleArn).Logger()

		token, ok := r.Context().Value(middleware.TokenKey).(string)
		if !ok {
			err := "Invalid token"
			http.Error(w, err, http.StatusUnauthorized)
			logger.Error().Msg(err)
			return
		}

		claims, ok := authn.ClaimsFrom(r.Context())
		if !ok || claims.IdentityID == "" {
			err := "Invalid claims"
			http.Error(w, err, http.StatusUnauthorized)
			logger.Error().Msg(err)
			return
		}

		logger = logger.With().Str("claims user", claims.Subject).Logger()

		prefix := photos.StorageKey("", claims.IdentityID)
		policy, err := photoPolicy(bucket, prefix)
		if err != nil {
			logger.Err(err).Msg("Failed to build session policy")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp, err := c.AssumeRoleWithWebIdentity(r.Context(),
			&sts.AssumeRoleWithWebIdentityInput{
				RoleArn:          &roleArn,
				WebIdentityToken: &token,
				RoleSessionName:  aws.String(sessionName(claims)),
				Policy:           aws.String(policy),
			})
		if err != nil {
			logger.Err(err).Msg("Failed to retrieve photo credentials")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PhotoCredentials{
			AccessKeyId:     *resp.Credentials.AccessKeyId,
			SecretAccessKey: *resp.Credentials.SecretAccessKey,
			SessionToken:    *resp.Credentials.SessionToken,
			Expiration:      resp.Credentials.Expiration.UTC().Format(TimeFormat),
			Bucket:          bucket,
			Prefix:          prefix,
		})
		logger.Info().Msg("Photo credentials retrieved")
	}
}

type policyStatement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func photoPolicy(bucket, prefix string) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:   "Allow",
			Action:   []string{"s3:GetObject", "s3:PutObject", "s3:DeleteObject"},
			Resource: []string{fmt.Sprintf("arn:aws:s3:::%s/%s*", bucket, prefix)},
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func sessionName(claims authn.Claims) string {
	name := "photos-" + claims.Subject
	if len(name) > maxSessionName {
		name = name[:maxSessionName]
	}
	return name
}
