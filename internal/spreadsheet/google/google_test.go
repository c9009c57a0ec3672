package google

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"regdesk/pkg/platform/sentinel"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{name: "quota exceeded", code: http.StatusTooManyRequests, want: sentinel.ErrRateLimited},
		{name: "missing document", code: http.StatusNotFound, want: sentinel.ErrNotFound},
		{name: "bad credentials", code: http.StatusUnauthorized, want: sentinel.ErrUnauthorized},
		{name: "not shared with service account", code: http.StatusForbidden, want: sentinel.ErrUnauthorized},
		{name: "backend outage", code: http.StatusServiceUnavailable, want: sentinel.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &googleapi.Error{Code: tt.code, Message: tt.name}
			got := translate(apiErr)
			assert.ErrorIs(t, got, tt.want)

			var gerr *googleapi.Error
			assert.True(t, errors.As(got, &gerr), "original API error stays in the chain")
		})
	}

	plain := errors.New("dial tcp: timeout")
	assert.Equal(t, plain, translate(plain))
	assert.Equal(t, &googleapi.Error{Code: http.StatusBadRequest}, translate(&googleapi.Error{Code: http.StatusBadRequest}))
}

func TestA1(t *testing.T) {
	assert.Equal(t, "'national_wk'", a1("national_wk"))
	assert.Equal(t, "'Bob''s sheet'", a1("Bob's sheet"))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `mini\'congress`, escapeQuery("mini'congress"))
}
