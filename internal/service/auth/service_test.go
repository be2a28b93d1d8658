package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eargai/earg-backend/internal/config"
	"github.com/eargai/earg-backend/internal/repository"
)

type captureSender struct {
	email string
	code  string
}

func (s *captureSender) Send(_ context.Context, email, code string) error {
	s.email = email
	s.code = code
	return nil
}

func newTestService(t *testing.T) (*Service, *captureSender, *time.Time) {
	t.Helper()

	db, err := repository.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sender := &captureSender{}
	svc := NewService(
		repository.NewUserRepository(db),
		repository.NewPasscodeRepository(db),
		sender,
		config.AuthConfig{
			SessionSecret: []byte("test-secret"),
			SessionTTL:    time.Hour,
			PasscodeTTL:   5 * time.Minute,
			CodeLength:    6,
		},
	)

	now := time.Now().UTC()
	svc.now = func() time.Time { return now }
	return svc, sender, &now
}

func TestIssueAndVerify(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "u@x.com"))
	require.Equal(t, "u@x.com", sender.email)
	require.Len(t, sender.code, 6)

	token, err := svc.Verify(ctx, "u@x.com", sender.code)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := UserIDFromToken(token, []byte("test-secret"))
	require.NoError(t, err)
	require.NotEmpty(t, userID)
}

func TestVerifyIsSingleUse(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "u@x.com"))

	_, err := svc.Verify(ctx, "u@x.com", sender.code)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "u@x.com", sender.code)
	require.ErrorIs(t, err, ErrInvalidPasscode)
}

func TestVerifyWrongCode(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "u@x.com"))

	_, err := svc.Verify(ctx, "u@x.com", "000000")
	require.ErrorIs(t, err, ErrInvalidPasscode)

	// A failed attempt costs nothing; the real code still works.
	_, err = svc.Verify(ctx, "u@x.com", sender.code)
	require.NoError(t, err)
}

func TestVerifyExpiredCode(t *testing.T) {
	svc, sender, now := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "u@x.com"))

	*now = now.Add(5*time.Minute + time.Second)

	_, err := svc.Verify(ctx, "u@x.com", sender.code)
	require.ErrorIs(t, err, ErrInvalidPasscode)
}

func TestReissueInvalidatesOldCode(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "u@x.com"))
	oldCode := sender.code

	require.NoError(t, svc.Issue(ctx, "u@x.com"))
	newCode := sender.code

	if oldCode != newCode {
		_, err := svc.Verify(ctx, "u@x.com", oldCode)
		require.ErrorIs(t, err, ErrInvalidPasscode)
	}

	_, err := svc.Verify(ctx, "u@x.com", newCode)
	require.NoError(t, err)
}

func TestVerifyCreatesUserOnce(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "u@x.com"))
	first, err := svc.Verify(ctx, "u@x.com", sender.code)
	require.NoError(t, err)

	require.NoError(t, svc.Issue(ctx, "u@x.com"))
	second, err := svc.Verify(ctx, "u@x.com", sender.code)
	require.NoError(t, err)

	firstID, err := UserIDFromToken(first, []byte("test-secret"))
	require.NoError(t, err)
	secondID, err := UserIDFromToken(second, []byte("test-secret"))
	require.NoError(t, err)
	require.Equal(t, firstID, secondID)
}

func TestGenerateCodeFixedLength(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9')
		}
	}
}
