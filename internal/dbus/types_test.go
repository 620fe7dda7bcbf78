package dbus

import (
	"math"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
)

func TestParseActions(t *testing.T) {
	tests := []struct {
		name     string
		pairs    []string
		expected []model.Action
		wantErr  bool
	}{
		{
			name:     "empty",
			pairs:    nil,
			expected: nil,
		},
		{
			name:  "single action is primary",
			pairs: []string{"undo", "Undo"},
			expected: []model.Action{
				{Key: "undo", Label: "Undo", Variant: model.VariantPrimary},
			},
		},
		{
			name:  "later actions are secondary",
			pairs: []string{"open", "Open", "later", "Later"},
			expected: []model.Action{
				{Key: "open", Label: "Open", Variant: model.VariantPrimary},
				{Key: "later", Label: "Later", Variant: model.VariantSecondary},
			},
		},
		{
			name:    "odd number of values",
			pairs:   []string{"open", "Open", "orphan"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{"", "Open"},
			wantErr: true,
		},
		{
			name:    "duplicate key",
			pairs:   []string{"open", "Open", "open", "Again"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, err := ParseActions(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actions)
		})
	}
}

func TestFormatActions(t *testing.T) {
	n := model.Notification{Actions: []model.Action{
		{Key: "open", Label: "Open"},
		{Label: "Keyless"},
	}}

	assert.Equal(t, []string{"open", "Open", "1", "Keyless"}, FormatActions(n.Actions, n.ActionKey))
	assert.Equal(t, []string{}, FormatActions(nil, n.ActionKey))
}

func TestToastInfo_RoundTrip(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)

	t.Run("timed", func(t *testing.T) {
		n := model.Notification{
			ID:        "01TIMED",
			Message:   "Saved",
			Kind:      model.KindSuccess,
			Duration:  3 * time.Second,
			CreatedAt: created,
			ExpiresAt: created.Add(3 * time.Second),
			Actions:   []model.Action{{Key: "undo", Label: "Undo", Variant: model.VariantPrimary}},
		}

		info := toToastInfo(n)
		assert.Equal(t, created.UnixMilli()+3000, info.ExpiresAt)
		assert.Equal(t, []string{"undo", "Undo"}, info.Actions)

		back := info.Notification()
		assert.Equal(t, n.ID, back.ID)
		assert.Equal(t, n.Kind, back.Kind)
		assert.Equal(t, 3*time.Second, back.Duration)
		assert.False(t, back.Sticky)
		assert.Equal(t, n.Actions, back.Actions)
	})

	t.Run("sticky", func(t *testing.T) {
		n := model.Notification{
			ID:        "01STICKY",
			Message:   "Disk full",
			Kind:      model.KindError,
			Sticky:    true,
			CreatedAt: created,
		}

		info := toToastInfo(n)
		assert.Zero(t, info.ExpiresAt)
		assert.True(t, info.Notification().Sticky)
	})
}

func TestUrgencyForKind(t *testing.T) {
	tests := []struct {
		kind     model.Kind
		expected byte
	}{
		{model.KindError, UrgencyCritical},
		{model.KindInfo, UrgencyLow},
		{model.KindSuccess, UrgencyNormal},
		{model.KindWarning, UrgencyNormal},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, UrgencyForKind(tt.kind))
		})
	}
}

func TestNewDesktopNotification(t *testing.T) {
	n := model.Notification{
		ID:       "01DESKTOP",
		Message:  "Upload failed",
		Kind:     model.KindError,
		Duration: 4 * time.Second,
		Actions:  []model.Action{{Key: "retry", Label: "Retry"}},
	}

	dn := newDesktopNotification(n)
	assert.Equal(t, AppName, dn.AppName)
	assert.Equal(t, "dialog-error", dn.AppIcon)
	assert.Equal(t, "Error", dn.Summary)
	assert.Equal(t, "Upload failed", dn.Body)
	assert.Equal(t, []string{"retry", "Retry"}, dn.Actions)
	assert.Equal(t, int32(4000), dn.ExpireTimeout)
	assert.Equal(t, dbus.MakeVariant(UrgencyCritical), dn.Hints["urgency"])

	n.Sticky = true
	assert.Equal(t, int32(0), newDesktopNotification(n).ExpireTimeout)

	// Four weeks would wrap negative as plain int32 milliseconds
	n.Sticky = false
	n.Duration = 4 * 7 * 24 * time.Hour
	assert.Equal(t, int32(math.MaxInt32), newDesktopNotification(n).ExpireTimeout)
}

func TestDurationMillis(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int32
	}{
		{0, 0},
		{-time.Second, 0},
		{1500 * time.Millisecond, 1500},
		{MaxDuration, math.MaxInt32},
		{MaxDuration + time.Millisecond, math.MaxInt32},
		{672 * time.Hour, math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			got := durationMillis(tt.in)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, int32(0))
		})
	}
}
