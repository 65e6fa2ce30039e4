package directory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/lib/pq"
	"github.com/rolodex-app/directory-services/internal/authn"
	"github.com/rolodex-app/directory-services/internal/photos"
	"github.com/rolodex-app/directory-services/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, ""},
		{"auth", fmt.Errorf("wrapped: %w", authn.ErrAuthRequired), CategoryAuth},
		{"expired credentials", photos.ErrCredentialsIssue, CategoryAuth},
		{"unsupported photo", photos.ErrUnsupportedFormat, CategoryStorage},
		{"upload", photos.ErrUploadFailure, CategoryStorage},
		{"validation", models.ErrValidation, CategoryData},
		{"not found", fmt.Errorf("profile x: %w", ErrNotFound), CategoryData},
		{"postgres", &pq.Error{Code: "23503", Message: "violates foreign key constraint"}, CategoryData},
		{"s3", &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}, CategoryStorage},
		{"deadline", context.DeadlineExceeded, CategoryNetwork},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, CategoryNetwork},
		{"other", errors.New("boom"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "", FormatError(nil))
	assert.Equal(t, "Data error: violates foreign key constraint (foreign_key_violation)",
		FormatError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"}))
	assert.Equal(t, "Storage error: denied (AccessDenied)",
		FormatError(&smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}))
	assert.Contains(t, FormatError(photos.ErrCredentialsIssue), "sign in again")
	assert.Contains(t, FormatError(context.DeadlineExceeded), "Network error")
	assert.Equal(t, "Unexpected error: boom", FormatError(errors.New("boom")))
}

func TestReporterForwardsMessages(t *testing.T) {
	var got []string
	r := Reporter{OnError: func(msg string) { got = append(got, msg) }}

	err := r.fail(context.Background(), "getProfile", ErrNotFound)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Data error: record not found"}, got)
}

func TestUndoLogRunsNewestFirst(t *testing.T) {
	var order []string
	u := &undoLog{}
	u.add("first", func(context.Context) error { order = append(order, "first"); return nil })
	u.add("second", func(context.Context) error { order = append(order, "second"); return ErrNotFound })
	u.add("third", func(context.Context) error { order = append(order, "third"); return errors.New("ignored") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u.run(ctx, Reporter{})

	assert.Equal(t, []string{"third", "second", "first"}, order)

	order = nil
	u.run(ctx, Reporter{})
	assert.Empty(t, order)
}
