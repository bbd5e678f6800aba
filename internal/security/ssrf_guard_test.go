package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewSafeClient はタイムアウトとカスタムTransportが設定されることを検証する。
func TestNewSafeClient(t *testing.T) {
	client := NewSSRFGuard().NewSafeClient(5 * time.Second)

	if client.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("expected custom transport")
	}
}

// TestNewSafeClientBlocksLoopback はhttptestサーバー(127.0.0.1)への接続が拒否されることを検証する。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewSSRFGuard().NewSafeClient(5 * time.Second)
	resp, err := client.Get(ts.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected error for loopback request")
	}
	if called {
		t.Error("expected request not to reach the server")
	}
}

// TestValidateURL はURLの静的検証を検証する。
func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"公開https", "https://www.example.com/feed.xml", false},
		{"公開http", "http://news.example.org/rss", false},
		{"ポート付き公開ホスト", "https://example.com:443/feed", false},
		{"空文字列", "", true},
		{"スキームなし", "example.com/feed", true},
		{"ftp", "ftp://example.com/feed", true},
		{"file", "file:///etc/passwd", true},
		{"プライベート10", "http://10.0.0.1/feed", true},
		{"プライベート172", "http://172.16.5.4/feed", true},
		{"プライベート192", "http://192.168.1.100/feed", true},
		{"ループバック", "http://127.0.0.1/feed", true},
		{"localhost", "http://localhost:8080/feed", true},
		{"localhostサブドメイン", "http://api.localhost/feed", true},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data/", true},
		{"ゼロアドレス", "http://0.0.0.0/feed", true},
		{"IPv6ループバック", "http://[::1]/feed", true},
		{"IPv6ユニークローカル", "http://[fd00::1]/feed", true},
	}

	guard := NewSSRFGuard()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
