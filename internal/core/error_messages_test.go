package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:8000: connect: connection refused"),
			wantCode: "API001",
		},
		{
			name:     "unknown host",
			err:      errors.New("dial tcp: lookup api.local: no such host"),
			wantCode: "API001",
		},
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("fetch rows: %w", errors.New("context deadline exceeded")),
			wantCode: "API002",
		},
		{
			name:     "cancelled",
			err:      errors.New("context canceled"),
			wantCode: "API003",
		},
		{
			name:     "upload slots busy",
			err:      dataapi.ErrTooManyUploads,
			wantCode: "UPL001",
		},
		{
			name:     "status 404 wins over text",
			err:      &dataapi.APIError{Status: http.StatusNotFound, Message: "timeout"},
			wantCode: "TBL001",
		},
		{
			name:     "status 413",
			err:      &dataapi.APIError{Status: http.StatusRequestEntityTooLarge},
			wantCode: "FILE001",
		},
		{
			name:     "status 429",
			err:      &dataapi.APIError{Status: http.StatusTooManyRequests},
			wantCode: "API004",
		},
		{
			name:     "wrapped status 401",
			err:      fmt.Errorf("patch: %w", &dataapi.APIError{Status: http.StatusUnauthorized}),
			wantCode: "AUTH001",
		},
		{
			name:     "unmapped status falls back to text",
			err:      &dataapi.APIError{Status: http.StatusInternalServerError, Message: "boom"},
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned empty message for non-nil error")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("dial tcp: connection refused")
	result := FormatUserError(err)

	expected := "No se pudo conectar con el servidor de datos. (Code: API001). Inténtalo de nuevo en unos momentos."
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("rate limit exceeded"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server message is shown as sent",
			err:  &dataapi.APIError{Status: http.StatusBadRequest, Message: "Columna inválida"},
			want: "Columna inválida",
		},
		{
			name: "mapped message when server is silent",
			err:  &dataapi.APIError{Status: http.StatusNotFound},
			want: "La tabla o el registro no existe.",
		},
		{
			name: "fallback for unknown errors",
			err:  errors.New("weird"),
			want: msgSaveFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusText(tt.err, msgSaveFailed); got != tt.want {
				t.Errorf("statusText() = %q, want %q", got, tt.want)
			}
		})
	}
}
