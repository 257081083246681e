package gala

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"autoenter/internal/model"
)

type call struct {
	Method string
	Path   string
	Body   string
}

type fakeRequester struct {
	responses map[string]string
	err       error
	calls     []call
}

func (f *fakeRequester) Request(_ context.Context, method, path string, body []byte) ([]byte, error) {
	f.calls = append(f.calls, call{Method: method, Path: path, Body: string(body)})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.responses[path]), nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func TestLevel(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "number", body: `{"current_level": 3}`, want: 3},
		{name: "string", body: `{"current_level": "2"}`, want: 2},
		{name: "missing", body: `{}`, want: 0},
		{name: "garbage level", body: `{"current_level": "abc"}`, want: 0},
		{name: "not json", body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &fakeRequester{responses: map[string]string{"/giveaways/get_user_level_and_coins": tt.body}}
			got, err := New(req, discard()).Level(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Level() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseProfile(t *testing.T) {
	fixture, err := os.ReadFile("../../testdata/profile.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	tests := []struct {
		name string
		html string
		want Profile
	}{
		{
			name: "fixture",
			html: string(fixture),
			want: Profile{NextRecharge: 15 * time.Minute, Coins: 187},
		},
		{
			name: "missing everything falls back",
			html: `<div class="warning">Your account is locked</div>`,
			want: Profile{NextRecharge: DefaultRecharge, Coins: DefaultCoins},
		},
		{
			name: "unreadable coins only",
			html: `<span id="next-recharge-mins">0</span><span class="galasilver-profile">lots</span>`,
			want: Profile{NextRecharge: time.Minute, Coins: DefaultCoins},
		},
		{
			name: "zero coins is kept",
			html: `<span id="next-recharge-mins">4</span><span class="galasilver-profile"> 0 </span>`,
			want: Profile{NextRecharge: 5 * time.Minute, Coins: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProfile(tt.html, discard())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseProfile() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnter(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    model.EntryResult
		wantErr bool
	}{
		{
			name: "ok",
			body: `{"status":"ok","new_amount":95}`,
			want: model.EntryResult{Status: model.EntryStatusOK, NewAmount: intPtr(95)},
		},
		{
			name: "insufficient credit",
			body: `{"status":"insufficient_credit"}`,
			want: model.EntryResult{Status: model.EntryStatusInsufficientCredit},
		},
		{
			name:    "broken body",
			body:    `oops`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &fakeRequester{responses: map[string]string{"/giveaways/new_entry": tt.body}}
			got, err := New(req, discard()).Enter(context.Background(), "1001", 5)

			wantCall := []call{{Method: "POST", Path: "/giveaways/new_entry", Body: `{"giv_id":"1001","ticket_price":5}`}}
			if diff := cmp.Diff(wantCall, req.calls); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Enter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequestErrorPropagates(t *testing.T) {
	req := &fakeRequester{err: context.Canceled}
	c := New(req, discard())
	if _, err := c.Profile(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("Profile: expected context.Canceled, got %v", err)
	}
	if _, err := c.Level(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("Level: expected context.Canceled, got %v", err)
	}
}
