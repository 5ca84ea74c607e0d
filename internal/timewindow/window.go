package timewindow

import (
	"fmt"
	"time"
)

// Window is a recommended time range. Earliest <= Recommended <= Latest
// holds for every Window produced by this package.
type Window struct {
	Earliest    time.Time `json:"earliest"`
	Latest      time.Time `json:"latest"`
	Recommended time.Time `json:"recommended"`
}

// New builds a window from earliest and latest with the recommendation at the
// midpoint. Inverted bounds collapse to the earlier instant and return a note.
func New(earliest, latest time.Time) (Window, string) {
	if latest.Before(earliest) {
		return Point(latest), fmt.Sprintf("window inverted (%s after %s); collapsed to %s",
			earliest.Format("15:04"), latest.Format("15:04"), latest.Format("15:04"))
	}
	return Window{Earliest: earliest, Latest: latest, Recommended: Midpoint(earliest, latest)}, ""
}

// Point returns a zero-width window at t.
func Point(t time.Time) Window {
	return Window{Earliest: t, Latest: t, Recommended: t}
}

// Around returns [center-half, center+half] recommending center.
func Around(center time.Time, half time.Duration) Window {
	return Window{Earliest: center.Add(-half), Latest: center.Add(half), Recommended: center}
}

// Valid reports whether the ordering invariant holds.
func (w Window) Valid() bool {
	return !w.Earliest.After(w.Recommended) && !w.Recommended.After(w.Latest)
}

// Narrow applies optional lower and upper bounds. A bound only wins when it
// further restricts the window. If the result would invert, the window
// collapses to the earlier of the two candidate edges and a note is returned.
func (w Window) Narrow(lower, upper *time.Time) (Window, string) {
	e, l := w.Earliest, w.Latest
	if lower != nil && lower.After(e) {
		e = *lower
	}
	if upper != nil && upper.Before(l) {
		l = *upper
	}
	if l.Before(e) {
		at := EarlierOf(e, l)
		return Point(at), fmt.Sprintf("wake window and schedule bounds do not overlap; pinned to %s", at.Format("15:04"))
	}
	return Window{Earliest: e, Latest: l, Recommended: Clamp(w.Recommended, e, l)}, ""
}

// LeanEarliest moves the recommendation to the earliest edge.
func (w Window) LeanEarliest() Window {
	w.Recommended = w.Earliest
	return w
}

// Recenter returns a window of ±half around the clamped recommendation, with
// both edges kept inside [lower, upper].
func (w Window) Recenter(half time.Duration, lower, upper time.Time) Window {
	rec := Clamp(w.Recommended, lower, upper)
	return Window{
		Earliest:    Clamp(rec.Add(-half), lower, rec),
		Latest:      Clamp(rec.Add(half), rec, LaterOf(upper, rec)),
		Recommended: rec,
	}
}

// Shift moves every edge by d.
func (w Window) Shift(d time.Duration) Window {
	return Window{Earliest: w.Earliest.Add(d), Latest: w.Latest.Add(d), Recommended: w.Recommended.Add(d)}
}
