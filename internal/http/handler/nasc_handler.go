package handler

import (
	"net/http"

	"github.com/retendo/account/internal/http/response"
	"github.com/retendo/account/internal/nintendo"
	"github.com/retendo/account/internal/service"
)

// NASCHandler serves the console LOGIN/SVCLOC exchange. Every field of the
// form body is individually text-encoded, and the response rides on HTTP
// 200 no matter the logical outcome.
type NASCHandler struct {
	nasc *service.NASCService
}

func NewNASCHandler(nasc *service.NASCService) *NASCHandler {
	return &NASCHandler{nasc: nasc}
}

func (h *NASCHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.URLEncoded(w, http.StatusOK, genericNASCError())
		return
	}

	required := []string{"action", "fcdcert", "csnum", "macadr", "titleid", "servertype"}
	for _, field := range required {
		if r.PostFormValue(field) == "" {
			response.URLEncoded(w, http.StatusOK, genericNASCError())
			return
		}
	}

	fields, ok := decodeNASCFields(r, "action", "csnum", "macadr", "titleid", "servertype", "userid", "uidhmac", "passwd")
	if !ok {
		response.URLEncoded(w, http.StatusOK, genericNASCError())
		return
	}
	fcdCert, err := nintendo.Base64Decode(r.PostFormValue("fcdcert"))
	if err != nil {
		response.URLEncoded(w, http.StatusOK, genericNASCError())
		return
	}

	resp := h.nasc.HandleExchange(r.Context(), service.NASCRequest{
		Action:      fields["action"],
		FCDCert:     fcdCert,
		Serial:      fields["csnum"],
		MACAddress:  fields["macadr"],
		TitleID:     fields["titleid"],
		Environment: fields["servertype"],
		UserID:      fields["userid"],
		UserIDHMAC:  fields["uidhmac"],
		Password:    fields["passwd"],
	})

	response.URLEncoded(w, http.StatusOK, resp.Encode())
}

// decodeNASCFields decodes the named form fields, skipping absent ones.
func decodeNASCFields(r *http.Request, names ...string) (map[string]string, bool) {
	fields := make(map[string]string, len(names))
	for _, name := range names {
		value := r.PostFormValue(name)
		if value == "" {
			continue
		}
		decoded, err := nintendo.Base64Decode(value)
		if err != nil {
			return nil, false
		}
		fields[name] = string(decoded)
	}
	return fields, true
}

func genericNASCError() string {
	resp := service.GenericNASCError()
	return resp.Encode()
}
