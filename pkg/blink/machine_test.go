package blink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-blink/pkg/event"
)

func names(evs []event.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Name
	}
	return out
}

func run(m *Machine, threshold float64, values ...float64) []event.Event {
	var out []event.Event
	for _, v := range values {
		out = append(out, m.Step(v, threshold)...)
	}
	return out
}

func TestMachine_ThresholdDebounce(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []event.Event
		total  int
	}{
		{
			name:   "two closed frames are not a blink",
			values: []float64{0.2, 0.2, 0.6},
			want: []event.Event{
				event.EyeStateChanged(event.NameEyeState, "closed"),
				event.EyeStateChanged(event.NameEyeState, "open"),
			},
		},
		{
			name:   "three closed frames are a blink",
			values: []float64{0.2, 0.2, 0.2, 0.6},
			want: []event.Event{
				event.EyeStateChanged(event.NameEyeState, "closed"),
				event.Blink(event.NameBlink, 1),
				event.EyeStateChanged(event.NameEyeState, "open"),
			},
			total: 1,
		},
		{
			name:   "open eye emits nothing",
			values: []float64{0.6, 0.5, 0.7},
		},
		{
			name:   "at threshold counts as open",
			values: []float64{0.2, 0.2, 0.2, 0.5},
			want: []event.Event{
				event.EyeStateChanged(event.NameEyeState, "closed"),
				event.Blink(event.NameBlink, 1),
				event.EyeStateChanged(event.NameEyeState, "open"),
			},
			total: 1,
		},
		{
			name:   "two blinks",
			values: []float64{0.1, 0.1, 0.1, 0.9, 0.1, 0.1, 0.1, 0.1, 0.9},
			want: []event.Event{
				event.EyeStateChanged(event.NameEyeState, "closed"),
				event.Blink(event.NameBlink, 1),
				event.EyeStateChanged(event.NameEyeState, "open"),
				event.EyeStateChanged(event.NameEyeState, "closed"),
				event.Blink(event.NameBlink, 2),
				event.EyeStateChanged(event.NameEyeState, "open"),
			},
			total: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(Combined, Threshold, DefaultDebounce)
			got := run(m, 0.5, tt.values...)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, m.Total())
			assert.Equal(t, Open, m.State())
			assert.Equal(t, 0, m.ClosedFrames())
		})
	}
}

func TestMachine_ThresholdClosedCount(t *testing.T) {
	m := NewMachine(Left, Threshold, DefaultDebounce)
	evs := run(m, 0.3, 0.1, 0.1, 0.1, 0.1)
	assert.Equal(t, []string{event.NameLeftEyeState}, names(evs))
	assert.Equal(t, Closed, m.State())
	assert.Equal(t, 4, m.ClosedFrames())
}

func TestMachine_Derivative(t *testing.T) {
	m := NewMachine(Right, Derivative, DefaultDebounce)
	threshold := -0.1

	assert.Empty(t, m.Step(0, threshold))

	evs := m.Step(-0.3, threshold)
	assert.Equal(t, []event.Event{event.EyeStateChanged(event.NameRightEyeState, "closed")}, evs)

	assert.Empty(t, m.Step(-0.4, threshold))
	assert.Equal(t, 2, m.ClosedFrames())

	evs = m.Step(-0.1, threshold)
	assert.Equal(t, []event.Event{
		event.EyeStateChanged(event.NameRightEyeState, "open"),
		event.Blink(event.NameRightBlink, 1),
	}, evs)

	assert.Empty(t, m.Step(0.2, threshold))
	assert.Equal(t, 1, m.Total())
}

func TestMachine_DerivativeNoDebounce(t *testing.T) {
	m := NewMachine(Combined, Derivative, DefaultDebounce)
	evs := run(m, -0.1, -0.5, 0)
	assert.Equal(t, []string{event.NameEyeState, event.NameEyeState, event.NameBlink}, names(evs))
	assert.Equal(t, 1, m.Total())
}

func TestRegion_EventNames(t *testing.T) {
	assert.Equal(t, "eye_state", Combined.StateEvent())
	assert.Equal(t, "blink_event", Combined.BlinkEvent())
	assert.Equal(t, "left_eye_state", Left.StateEvent())
	assert.Equal(t, "left_blink_event", Left.BlinkEvent())
	assert.Equal(t, "right_eye_state", Right.StateEvent())
	assert.Equal(t, "right_blink_event", Right.BlinkEvent())
}

func TestParseRegions(t *testing.T) {
	got, err := ParseRegions([]string{"right", " Left", "combined", "left"})
	assert.NoError(t, err)
	assert.Equal(t, []Region{Combined, Left, Right}, got)

	_, err = ParseRegions([]string{"nose"})
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	st, err := ParseStrategy("Derivative")
	assert.NoError(t, err)
	assert.Equal(t, Derivative, st)

	_, err = ParseStrategy("magic")
	assert.Error(t, err)
}
