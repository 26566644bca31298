package google

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestNewAPIHTTPClient_SetsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewAPIHTTPClient(StaticTokenSource(&oauth2.Token{AccessToken: "at-1", TokenType: "Bearer"}))
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if got != "Bearer at-1" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer at-1")
	}
}
