package subtitles

// Segment is a timed span of recognized or translated text, in seconds from
// the start of the media.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Cue is a display-ready subtitle. Text holds the unwrapped cue text; Wrapped
// holds the same text broken into renderable lines.
type Cue struct {
	Start   float64
	End     float64
	Text    string
	Wrapped string
}

// DisplayText returns the wrapped form when present, falling back to the raw
// cue text.
func (c Cue) DisplayText() string {
	if c.Wrapped != "" {
		return c.Wrapped
	}
	return c.Text
}
