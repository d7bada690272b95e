package ratelimiting_test

import (
	"net/http"
	"testing"

	"github.com/Amund211/lana/internal/ratelimiting"
	"github.com/stretchr/testify/require"
)

func TestClientIdentity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "forwarded for takes precedence",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1", "X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.1:5000",
			expected:   "203.0.113.7",
		},
		{
			name:       "real ip",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.1:5000",
			expected:   "198.51.100.1",
		},
		{
			name:       "empty forwarded for entry",
			headers:    map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.1:5000",
			expected:   "198.51.100.1",
		},
		{
			name:       "remote address with port",
			remoteAddr: "123.123.123.123:41234",
			expected:   "123.123.123.123",
		},
		{
			name:       "remote address without port",
			remoteAddr: "123.123.123.123",
			expected:   "123.123.123.123",
		},
		{
			name:       "ipv6 remote address",
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
		{
			name:     "unknown",
			expected: "unknown",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			r := &http.Request{Header: http.Header{}, RemoteAddr: c.remoteAddr}
			for key, value := range c.headers {
				r.Header.Set(key, value)
			}
			require.Equal(t, c.expected, ratelimiting.ClientIdentity(r))
		})
	}
}
