package handler

import (
	"encoding/xml"
	"net/http"

	"github.com/retendo/account/internal/http/response"
)

type deviceStatusDocument struct {
	XMLName xml.Name `xml:"device"`
}

// DevicesHandler serves the device status probe consoles poll during
// setup. A verified console gets an empty document; everything interesting
// happens in the middleware chain in front of it.
type DevicesHandler struct{}

func NewDevicesHandler() *DevicesHandler { return &DevicesHandler{} }

func (h *DevicesHandler) CurrentStatus(w http.ResponseWriter, r *http.Request) {
	response.XML(w, http.StatusOK, deviceStatusDocument{})
}
