package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrNoIdentity is returned when a request carries no usable user id
var ErrNoIdentity = errors.New("no user identity in request")

// IdentityExtractor pulls the user id that cooldowns are tracked under
// out of an HTTP request.
type IdentityExtractor func(*http.Request) (string, error)

// FromHeader uses the value of a header as the user id, e.g. X-User-ID.
func FromHeader(name string) IdentityExtractor {
	return func(r *http.Request) (string, error) {
		v := strings.TrimSpace(r.Header.Get(name))
		if v == "" {
			return "", fmt.Errorf("%w: header %s missing", ErrNoIdentity, name)
		}
		return v, nil
	}
}

// FromBearer identifies the caller by a digest of the bearer token, so the
// token itself never ends up in stats or logs.
func FromBearer() IdentityExtractor {
	return func(r *http.Request) (string, error) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			return "", fmt.Errorf("%w: no bearer token", ErrNoIdentity)
		}
		sum := sha256.Sum256([]byte(token))
		return "bearer:" + hex.EncodeToString(sum[:8]), nil
	}
}

// FromIP uses the client address, honouring X-Forwarded-For and X-Real-IP
// when trustProxy is set.
func FromIP(trustProxy bool) IdentityExtractor {
	return func(r *http.Request) (string, error) {
		if trustProxy {
			if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
				return "ip:" + strings.TrimSpace(first), nil
			}
			if xri := r.Header.Get("X-Real-IP"); xri != "" {
				return "ip:" + xri, nil
			}
		}
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			return "", fmt.Errorf("%w: empty remote address", ErrNoIdentity)
		}
		return "ip:" + ip, nil
	}
}

// FirstOf tries each extractor in order and returns the first id found.
func FirstOf(extractors ...IdentityExtractor) IdentityExtractor {
	return func(r *http.Request) (string, error) {
		lastErr := fmt.Errorf("%w: no extractors configured", ErrNoIdentity)
		for _, extract := range extractors {
			id, err := extract(r)
			if err == nil && id != "" {
				return id, nil
			}
			if err != nil {
				lastErr = err
			}
		}
		return "", lastErr
	}
}

// ParseIdentity builds an extractor from a config string:
// "header:X-User-ID", "bearer", "ip", "ip-proxy". Several can be chained
// with commas, e.g. "header:X-User-ID,ip".
func ParseIdentity(config string) (IdentityExtractor, error) {
	var extractors []IdentityExtractor
	for _, part := range strings.Split(config, ",") {
		kind, arg, _ := strings.Cut(strings.TrimSpace(part), ":")
		switch kind {
		case "header":
			if arg == "" {
				return nil, fmt.Errorf("identity %q: header extractor requires 'header:Name'", part)
			}
			extractors = append(extractors, FromHeader(arg))
		case "bearer":
			extractors = append(extractors, FromBearer())
		case "ip":
			extractors = append(extractors, FromIP(false))
		case "ip-proxy":
			extractors = append(extractors, FromIP(true))
		default:
			return nil, fmt.Errorf("identity %q: unknown extractor %q", part, kind)
		}
	}
	if len(extractors) == 1 {
		return extractors[0], nil
	}
	return FirstOf(extractors...), nil
}
