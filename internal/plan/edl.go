package plan

import (
	"fmt"
	"io"
	"time"
)

// edlFrameRate is the timecode rate used for exported edit decision lists.
const edlFrameRate = 25

// WriteEDL renders the plan as a CMX3600-style edit decision list: one
// audio cut event per approved segment, record times packed back to back.
// Crossfade and ducking automation have no EDL representation and are
// omitted.
func (p *CompositionPlan) WriteEDL(w io.Writer, title string) error {
	if title == "" {
		title = "derush " + p.ID
	}
	if _, err := fmt.Fprintf(w, "TITLE: %s\nFCM: NON-DROP FRAME\n\n", title); err != nil {
		return err
	}
	record := time.Duration(0)
	for i, seg := range p.Segments {
		_, err := fmt.Fprintf(w, "%03d  AX       AA  C        %s %s %s %s\n",
			i+1,
			timecode(seg.Start),
			timecode(seg.End),
			timecode(record),
			timecode(record+seg.Duration()),
		)
		if err != nil {
			return err
		}
		record += seg.Duration()
	}
	return nil
}

// timecode formats a duration as HH:MM:SS:FF at the EDL frame rate.
func timecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalFrames := int64(d) * edlFrameRate / int64(time.Second)
	frames := totalFrames % edlFrameRate
	totalSeconds := totalFrames / edlFrameRate
	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		totalSeconds/3600,
		(totalSeconds/60)%60,
		totalSeconds%60,
		frames,
	)
}
