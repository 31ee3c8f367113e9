package response

import (
	"encoding/xml"
	"net/http"
)

// Consoles consume XML exclusively. Error payloads use the legacy envelope
// with 4-digit string codes; business errors usually ride on HTTP 200 or
// 400, never on richer status codes.

type errorEnvelope struct {
	XMLName xml.Name   `xml:"errors"`
	Errors  []APIError `xml:"error"`
}

type APIError struct {
	Cause   string `xml:"cause"`
	Code    string `xml:"code"`
	Message string `xml:"message"`
}

// XML writes an XML document with the given status.
func XML(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/xml;charset=UTF-8")
	w.WriteHeader(status)
	_ = xml.NewEncoder(w).Encode(payload)
}

// XMLError writes the legacy error envelope.
func XMLError(w http.ResponseWriter, status int, code, message string) {
	XML(w, status, errorEnvelope{Errors: []APIError{{Code: code, Message: message}}})
}

// XMLErrorWithCause writes the legacy error envelope with a cause field.
func XMLErrorWithCause(w http.ResponseWriter, status int, cause, code, message string) {
	XML(w, status, errorEnvelope{Errors: []APIError{{Cause: cause, Code: code, Message: message}}})
}

// URLEncoded writes a hand-assembled form body. The NASC response alphabet
// contains characters the standard encoder would escape, so callers pass
// pre-encoded text.
func URLEncoded(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
