package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorDetail(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "detail field present",
			status: http.StatusBadRequest,
			body:   `{"detail":"term is not recognised"}`,
			want:   "term is not recognised",
		},
		{
			name:   "empty detail degrades to status text",
			status: http.StatusBadRequest,
			body:   `{"detail":""}`,
			want:   "Bad Request",
		},
		{
			name:   "malformed body degrades to status text",
			status: http.StatusInternalServerError,
			body:   `<html>boom</html>`,
			want:   "Internal Server Error",
		},
		{
			name:   "empty body degrades to status text",
			status: http.StatusServiceUnavailable,
			body:   "",
			want:   "Service Unavailable",
		},
		{
			name:   "unknown status degrades to generic message",
			status: 599,
			body:   "",
			want:   "request failed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorDetail(tc.status, []byte(tc.body)))
		})
	}
}
