package cmd

import (
	"errors"
	"fmt"
	"testing"

	"nimbus/internal/session"
	"nimbus/pkg/cloud"
)

func TestGetExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "auth required error",
			err:  &authRequiredError{},
			want: ExitCodeAuthRequired,
		},
		{
			name: "logged out session",
			err:  fmt.Errorf("token source: %w", session.ErrLoggedOut),
			want: ExitCodeAuthRequired,
		},
		{
			name: "auth failed error",
			err:  &authFailedError{message: "authorization did not complete"},
			want: ExitCodeAuthFailed,
		},
		{
			name: "generic error",
			err:  errors.New("boom"),
			want: ExitCodeError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := getExitCode(tc.err); got != tc.want {
				t.Errorf("getExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	testCases := []struct {
		info cloud.UserInfo
		want string
	}{
		{cloud.UserInfo{ID: "u1", Email: "dev@example.com", Name: "Dev"}, "Dev"},
		{cloud.UserInfo{ID: "u1", Email: "dev@example.com"}, "dev@example.com"},
		{cloud.UserInfo{ID: "u1"}, "u1"},
	}

	for _, tc := range testCases {
		if got := displayName(tc.info); got != tc.want {
			t.Errorf("displayName(%+v) = %q, want %q", tc.info, got, tc.want)
		}
	}
}
