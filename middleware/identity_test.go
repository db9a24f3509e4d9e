package middleware

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIdentityExtractors(t *testing.T) {
	tests := []struct {
		name       string
		extractor  IdentityExtractor
		headers    map[string]string
		remoteAddr string
		want       string
		wantErr    bool
	}{
		{
			name:      "header present",
			extractor: FromHeader("X-User-ID"),
			headers:   map[string]string{"X-User-ID": " 42 "},
			want:      "42",
		},
		{
			name:      "header missing",
			extractor: FromHeader("X-User-ID"),
			wantErr:   true,
		},
		{
			name:      "bearer token",
			extractor: FromBearer(),
			headers:   map[string]string{"Authorization": "Bearer abc"},
			want:      "bearer:ba7816bf8f01cfea", // sha256("abc"), first 8 bytes
		},
		{
			name:      "basic auth is not a bearer token",
			extractor: FromBearer(),
			headers:   map[string]string{"Authorization": "Basic abc"},
			wantErr:   true,
		},
		{
			name:       "ip with port",
			extractor:  FromIP(false),
			remoteAddr: "192.168.1.1:12345",
			want:       "ip:192.168.1.1",
		},
		{
			name:       "ipv6 with port",
			extractor:  FromIP(false),
			remoteAddr: "[2001:db8::1]:8080",
			want:       "ip:2001:db8::1",
		},
		{
			name:       "proxy headers ignored when untrusted",
			extractor:  FromIP(false),
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1"},
			remoteAddr: "192.168.1.1:1",
			want:       "ip:192.168.1.1",
		},
		{
			name:       "forwarded for, first hop",
			extractor:  FromIP(true),
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"},
			remoteAddr: "192.168.1.1:1",
			want:       "ip:10.0.0.1",
		},
		{
			name:       "real ip",
			extractor:  FromIP(true),
			headers:    map[string]string{"X-Real-IP": "10.0.0.9"},
			remoteAddr: "192.168.1.1:1",
			want:       "ip:10.0.0.9",
		},
		{
			name:       "first of falls back",
			extractor:  FirstOf(FromHeader("X-User-ID"), FromIP(false)),
			remoteAddr: "127.0.0.1:5",
			want:       "ip:127.0.0.1",
		},
		{
			name:      "first of with nothing",
			extractor: FirstOf(),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			got, err := tt.extractor(req)
			if tt.wantErr {
				if !errors.Is(err, ErrNoIdentity) {
					t.Errorf("error = %v, want ErrNoIdentity", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFromBearer_DoesNotExposeToken(t *testing.T) {
	token := "s3cr3t-token-value"
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	id, err := FromBearer()(req)
	if err != nil {
		t.Fatalf("FromBearer() failed: %v", err)
	}
	if strings.Contains(id, token) {
		t.Errorf("id %q contains the raw token", id)
	}

	other := httptest.NewRequest("GET", "/", nil)
	other.Header.Set("Authorization", "Bearer another-token")
	otherID, _ := FromBearer()(other)
	if otherID == id {
		t.Error("different tokens must map to different ids")
	}

	again, _ := FromBearer()(req)
	if again != id {
		t.Errorf("same token gave %q then %q", id, again)
	}
}

func TestParseIdentity(t *testing.T) {
	valid := []string{"header:X-User-ID", "bearer", "ip", "ip-proxy", "header:X-User-ID, ip"}
	for _, cfg := range valid {
		if _, err := ParseIdentity(cfg); err != nil {
			t.Errorf("ParseIdentity(%q) unexpected error: %v", cfg, err)
		}
	}

	invalid := []string{"header", "cookie:sid", "", "ip,unknown"}
	for _, cfg := range invalid {
		if _, err := ParseIdentity(cfg); err == nil {
			t.Errorf("ParseIdentity(%q) expected error, got nil", cfg)
		}
	}

	extract, err := ParseIdentity("header:X-User-ID,ip")
	if err != nil {
		t.Fatalf("ParseIdentity() failed: %v", err)
	}
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "1.2.3.4:5"
	if got, _ := extract(req); got != "ip:1.2.3.4" {
		t.Errorf("chained extractor = %s, want ip:1.2.3.4", got)
	}
}
