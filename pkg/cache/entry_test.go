package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"stale entry", time.Now().Add(-1 * time.Hour), true},
		{"fresh entry", time.Now().Add(24 * time.Hour), false},
		{"just expired", time.Now().Add(-1 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_TTL(t *testing.T) {
	entry := &CacheEntry{Expires: time.Now().Add(24 * time.Hour)}
	if got := entry.TTL(); got < 23*time.Hour+59*time.Minute || got > 24*time.Hour {
		t.Errorf("TTL() = %v, want about 24h", got)
	}

	entry = &CacheEntry{Expires: time.Now().Add(-1 * time.Minute)}
	if got := entry.TTL(); got != 0 {
		t.Errorf("TTL() = %v, want 0 for stale entry", got)
	}
}

func TestCacheEntry_Revalidatable(t *testing.T) {
	if (&CacheEntry{}).Revalidatable() {
		t.Error("entry without validators should not be revalidatable")
	}
	if !(&CacheEntry{ETag: `W/"1f-abc"`}).Revalidatable() {
		t.Error("entry with ETag should be revalidatable")
	}
}
