package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestPreviewCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantQuery string
	}{
		{
			name:      "defaults",
			args:      []string{"preview", "1042", "--type", "KITCHEN", "--paper-width", "0"},
			wantQuery: "type=KITCHEN",
		},
		{
			name:      "customer copy on narrow paper",
			args:      []string{"preview", "1042", "--type", "CUSTOMER", "--paper-width", "58"},
			wantQuery: "paperWidthMm=58&type=CUSTOMER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()

			var gotPath, gotQuery string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.Write([]byte("COZINHA\nPedido #1042\n"))
			}))
			defer server.Close()

			viper.Set("url", server.URL)
			viper.Set("token", "cmd_test")

			out := execute(t, tt.args...)

			if gotPath != "/comanda/1042/preview" {
				t.Errorf("expected preview path, got %s", gotPath)
			}
			if gotQuery != tt.wantQuery {
				t.Errorf("expected query %q, got %q", tt.wantQuery, gotQuery)
			}
			if out != "COZINHA\nPedido #1042\n" {
				t.Errorf("expected rendered text verbatim, got %q", out)
			}
		})
	}
}

func TestPreviewCommand_BadType(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid document type"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "cmd_test")

	out := execute(t, "preview", "1042", "--type", "RECEIPT", "--paper-width", "0")

	if !strings.Contains(out, "Error (400): Invalid document type") {
		t.Errorf("expected API error, got: %s", out)
	}
}
