package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"autoenter/internal/gala"
	"autoenter/internal/model"
)

type fakeHost struct {
	level      int
	levelErr   error
	profile    gala.Profile
	profileErr error
}

func (f fakeHost) Level(context.Context) (int, error) { return f.level, f.levelErr }

func (f fakeHost) Profile(context.Context) (gala.Profile, error) { return f.profile, f.profileErr }

func TestRefresh(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		host    fakeHost
		want    model.UserState
		wantErr error
	}{
		{
			name: "combines level and profile",
			host: fakeHost{level: 2, profile: gala.Profile{NextRecharge: 15 * time.Minute, Coins: 187}},
			want: model.UserState{Level: 2, Coins: 187, CoinsKnown: true, NextRecharge: 15 * time.Minute},
		},
		{
			name: "profile fallbacks pass through",
			host: fakeHost{profile: gala.Profile{NextRecharge: gala.DefaultRecharge, Coins: gala.DefaultCoins}},
			want: model.UserState{Coins: 240, CoinsKnown: true, NextRecharge: 20 * time.Minute},
		},
		{
			name:    "level error",
			host:    fakeHost{levelErr: boom},
			wantErr: boom,
		},
		{
			name:    "profile error",
			host:    fakeHost{level: 1, profileErr: context.Canceled},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.host).Refresh(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Refresh() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
