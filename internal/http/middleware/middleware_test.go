package middleware

import (
	"encoding/base64"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testCredentials() map[string]string {
	return map[string]string{"client-id": "client-secret"}
}

func passthrough(t *testing.T, hit *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestClientHeaderCheckAcceptsKnownPair(t *testing.T) {
	var hit bool
	h := ClientHeaderCheck(testCredentials())(passthrough(t, &hit))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Nintendo-Client-ID", "client-id")
	req.Header.Set("X-Nintendo-Client-Secret", "client-secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !hit {
		t.Fatal("expected request to pass through")
	}
	if rr.Header().Get("Server") == "" || rr.Header().Get("X-Nintendo-Date") == "" {
		t.Fatal("expected legacy response headers on the reply")
	}
}

func TestClientHeaderCheckRejectsBadSecret(t *testing.T) {
	var hit bool
	h := ClientHeaderCheck(testCredentials())(passthrough(t, &hit))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Nintendo-Client-ID", "client-id")
	req.Header.Set("X-Nintendo-Client-Secret", "wrong")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if hit {
		t.Fatal("request must not pass through")
	}
	if !strings.Contains(rr.Body.String(), "<code>0004</code>") {
		t.Fatalf("expected 0004 error, got %q", rr.Body.String())
	}
}

func TestClientHeaderCheckRejectsMissingHeaders(t *testing.T) {
	var hit bool
	h := ClientHeaderCheck(testCredentials())(passthrough(t, &hit))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if hit {
		t.Fatal("request must not pass through")
	}
}

func TestCemuDetection(t *testing.T) {
	var sawCemu bool
	h := CemuDetection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawCemu = IsCemu(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "c.account.example.com"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !sawCemu {
		t.Fatal("expected emulator subdomain to be flagged")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "account.example.com"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if sawCemu {
		t.Fatal("expected console host not to be flagged")
	}
}

func TestDeviceCertificateDecodesHeader(t *testing.T) {
	raw := make([]byte, 4+0x3C+0x40+0x88)
	binary.BigEndian.PutUint32(raw, 0x10005)
	body := raw[4+0x3C+0x40:]
	copy(body[0x00:], "Nintendo CA - G3_NintendoCTR2prod")
	binary.BigEndian.PutUint32(body[0x40:], 0x2)
	copy(body[0x44:], "CT0A1B2C3D")

	var valid bool
	h := DeviceCertificate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cert := CertificateFromContext(r.Context())
		valid = cert != nil && cert.Valid
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Nintendo-Device-Cert", base64.StdEncoding.EncodeToString(raw))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !valid {
		t.Fatal("expected a valid certificate in context")
	}
}

func TestDeviceCertificateGarbageHeaderYieldsInvalidCert(t *testing.T) {
	var stored, valid bool
	h := DeviceCertificate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cert := CertificateFromContext(r.Context())
		stored = cert != nil
		valid = cert != nil && cert.Valid
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Nintendo-Device-Cert", "%%%not-base64%%%")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !stored {
		t.Fatal("expected certificate to be stored even when malformed")
	}
	if valid {
		t.Fatal("malformed header must not produce a valid certificate")
	}
}

func TestRateLimiterEnforcesLimit(t *testing.T) {
	var hits int
	h := NewRateLimiter(2, time.Minute).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.10.10.10:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request under the limit must pass, got %d", rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.10.10.10:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "<code>0008</code>") {
		t.Fatalf("expected 0008 error body, got %q", rr.Body.String())
	}
	if hits != 2 {
		t.Fatalf("expected 2 passed requests, got %d", hits)
	}
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	h := NewRateLimiter(1, time.Minute).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, addr := range []string{"10.0.0.1:100", "10.0.0.2:100"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("first request from %s must pass, got %d", addr, rr.Code)
		}
	}
}

func TestRateLimiterZeroLimitBypasses(t *testing.T) {
	h := NewRateLimiter(0, time.Minute).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for range 10 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.10.10.10:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("zero limit must disable limiting, got %d", rr.Code)
		}
	}
}
