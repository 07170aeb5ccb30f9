package handler

import "net/http"

type rootResponse struct {
	OK        bool   `json:"ok"`
	Source    string `json:"source"`
	FakeStore string `json:"fakeStore"`
}

// HandleRoot returns a liveness payload naming the upstream catalog.
//
// HTTP: GET /
//
//	{"ok": true, "source": "proxy-server", "fakeStore": "https://fakestoreapi.com"}
func HandleRoot(upstreamURL string) http.HandlerFunc {
	body := rootResponse{OK: true, Source: "proxy-server", FakeStore: upstreamURL}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}
