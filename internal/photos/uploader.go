package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rs/zerolog"
)

// SignedURLExpiry is the lifetime of every signed read URL.
const SignedURLExpiry = time.Hour

const photoContentType = "image/jpeg"

var (
	ErrUnsupportedFormat = errors.New("unsupported photo source: only local file URIs can be uploaded")
	ErrUploadFailure     = errors.New("photo upload failed")
	ErrCredentialsIssue  = errors.New("photo upload failed: storage credentials are missing or expired")
)

// Upload is the result of a successful photo upload.
type Upload struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Uploader puts a user's photos into private storage.
type Uploader struct {
	Storage ObjectStorage
	Session authn.Session
	CDN     CDN
	Now     func() time.Time
}

func NewUploader(storage ObjectStorage, session authn.Session, cdn CDN) *Uploader {
	return &Uploader{Storage: storage, Session: session, CDN: cdn, Now: time.Now}
}

// UploadPhoto uploads the file behind a file:// URI and returns its key and
// display URL. The URI is checked before anything else is touched.
func (u *Uploader) UploadPhoto(ctx context.Context, localFileURI string) (*Upload, error) {
	logger := zerolog.Ctx(ctx)

	path, err := localPath(localFileURI)
	if err != nil {
		return nil, err
	}

	identityID, err := u.Session.IdentityID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: no identity id in session", authn.ErrAuthRequired)
	}

	filename := u.filename()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrUploadFailure, path, err)
	}

	key := StorageKey(filename, identityID)
	now := u.now()
	err = u.Storage.Upload(ctx, key, bytes.NewReader(data), UploadOptions{
		ContentType: photoContentType,
		AccessLevel: AccessPrivate,
		Metadata: map[string]string{
			"identity-id": identityID,
			"uploaded-at": now.UTC().Format(time.RFC3339),
		},
		ContentDisposition: "inline; filename=\"" + filename + "\"",
	})
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Photo upload failed")
		if strings.Contains(strings.ToLower(err.Error()), "credentials") {
			return nil, fmt.Errorf("%w: %w", ErrCredentialsIssue, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUploadFailure, err)
	}

	if _, err := u.Storage.GetURL(ctx, key, URLOptions{AccessLevel: AccessPrivate, ExpiresIn: SignedURLExpiry}); err != nil {
		return nil, fmt.Errorf("%w: confirming upload: %w", ErrUploadFailure, err)
	}

	logger.Info().Str("key", key).Int("bytes", len(data)).Msg("Photo uploaded")
	return &Upload{URL: u.CDN.URL(key), Key: key}, nil
}

// RemovePhoto deletes a stored photo.
func (u *Uploader) RemovePhoto(ctx context.Context, key string) error {
	return u.Storage.Remove(ctx, key, AccessPrivate)
}

// SignedURL returns a short lived read URL for a stored photo.
func (u *Uploader) SignedURL(ctx context.Context, key string) (string, error) {
	return u.Storage.GetURL(ctx, key, URLOptions{AccessLevel: AccessPrivate, ExpiresIn: SignedURLExpiry})
}

func (u *Uploader) now() time.Time {
	if u.Now == nil {
		return time.Now()
	}
	return u.Now()
}

// filename is unique across users: milliseconds since epoch plus a random suffix.
func (u *Uploader) filename() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return strconv.FormatInt(u.now().UnixMilli(), 10) + "-" + suffix + ".jpg"
}

func localPath(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != "file" || parsed.Path == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, truncate(uri, 32))
	}
	return parsed.Path, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
