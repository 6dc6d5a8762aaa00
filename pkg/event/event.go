// Package event defines the named events the blink pipeline emits and the
// asynchronous publisher that hands them to a Sink off the detection path.
package event

// Event names. Subscribers match on these strings, so they never change.
const (
	NameCalibrated   = "calibrated"
	NameEARValue     = "ear_value"
	NameEARMValue    = "earm_value"
	NameEyeLandmarks = "eye_landmarks"

	NameEyeState      = "eye_state"
	NameLeftEyeState  = "left_eye_state"
	NameRightEyeState = "right_eye_state"

	NameBlink      = "blink_event"
	NameLeftBlink  = "left_blink_event"
	NameRightBlink = "right_blink_event"
)

// Payload is the JSON-like body of an event. Publishers hand sinks a copy,
// never live pipeline state.
type Payload map[string]any

// Event is a named payload.
type Event struct {
	Name    string  `json:"event"`
	Payload Payload `json:"data"`
}

// Sink delivers events to subscribers. Delivery is fire-and-forget from the
// pipeline's point of view.
type Sink interface {
	Publish(name string, payload Payload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(name string, payload Payload) error

// Publish implements Sink.
func (f SinkFunc) Publish(name string, payload Payload) error {
	return f(name, payload)
}

// Calibrated reports a freshly derived threshold.
func Calibrated(threshold float64) Event {
	return Event{Name: NameCalibrated, Payload: Payload{"threshold": threshold}}
}

// EyeStateChanged reports an open/closed transition under the given event
// name (eye_state, left_eye_state or right_eye_state).
func EyeStateChanged(name, status string) Event {
	return Event{Name: name, Payload: Payload{"status": status}}
}

// Blink reports a completed blink and the running total for its region.
func Blink(name string, total int) Event {
	return Event{Name: name, Payload: Payload{"total": total}}
}

// EARValue carries the raw combined openness ratio.
func EARValue(v float64) Event {
	return Event{Name: NameEARValue, Payload: Payload{"value": v}}
}

// EARMValue carries the second-difference signal.
func EARMValue(v float64) Event {
	return Event{Name: NameEARMValue, Payload: Payload{"value": v}}
}

// EyeLandmarks carries eye and mouth contours as [x, y, z] triples in
// normalized 0-1 coordinates.
func EyeLandmarks(left, right, mouthOuter, mouthInner [][3]float64) Event {
	return Event{Name: NameEyeLandmarks, Payload: Payload{
		"left_eye":    nonNil(left),
		"right_eye":   nonNil(right),
		"mouth_outer": nonNil(mouthOuter),
		"mouth_inner": nonNil(mouthInner),
	}}
}

// nonNil keeps empty contours encoding as [] rather than null.
func nonNil(pts [][3]float64) [][3]float64 {
	if pts == nil {
		return [][3]float64{}
	}
	return pts
}

// Clone returns a shallow copy of the payload map.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
