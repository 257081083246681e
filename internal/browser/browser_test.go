package browser

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCookies(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []Cookie
	}{
		{
			name:   "single",
			header: "auth=abc",
			want:   []Cookie{{Name: "auth", Value: "abc"}},
		},
		{
			name:   "several with spaces",
			header: "auth=abc;  session = x=y ; theme=dark",
			want: []Cookie{
				{Name: "auth", Value: "abc"},
				{Name: "session", Value: "x=y"},
				{Name: "theme", Value: "dark"},
			},
		},
		{
			name:   "garbage parts are dropped",
			header: "; novalue; =orphan; ok=1",
			want:   []Cookie{{Name: "ok", Value: "1"}},
		},
		{
			name:   "empty",
			header: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCookies(tt.header)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCookies() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(context.Background(), Options{BaseURL: "not a url"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
