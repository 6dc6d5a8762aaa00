package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-blink/pkg/event"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		only    string
		signals bool
		allowed []string
		denied  []string
	}{
		{
			name:    "default hides signal events",
			allowed: []string{"blink_event", "eye_state", "calibrated"},
			denied:  []string{"ear_value", "earm_value", "eye_landmarks"},
		},
		{
			name:    "signal flag shows everything",
			signals: true,
			allowed: []string{"blink_event", "ear_value", "eye_landmarks"},
		},
		{
			name:    "explicit list",
			only:    " blink_event , left_blink_event",
			allowed: []string{"blink_event", "left_blink_event"},
			denied:  []string{"eye_state", "ear_value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFilter(tt.only, tt.signals)
			for _, n := range tt.allowed {
				assert.True(t, f.allow(n), n)
			}
			for _, n := range tt.denied {
				assert.False(t, f.allow(n), n)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	ev := event.Event{Name: "blink_event", Payload: event.Payload{"total": 3.0, "a": "x"}}

	assert.Equal(t, "03:04:05.006 blink_event a=x total=3", format(at, ev))
	assert.Equal(t, "03:04:05.006 calibrated", format(at, event.Event{Name: "calibrated"}))
}
