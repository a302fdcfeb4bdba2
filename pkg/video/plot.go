package video

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"
	"gocv.io/x/gocv"
)

var (
	boneColor  = color.RGBA{0, 255, 0, 0}
	jointColor = color.RGBA{0, 0, 255, 0}
	panelColor = color.RGBA{40, 40, 40, 0}
	whiteRGB   = color.RGBA{255, 255, 255, 0}
)

//plotSkeleton draws the bones whose two ends both pass the score floor, then the joints themselves
func plotSkeleton(frame *gocv.Mat, p *pose.Pose, minScore float64) {
	visible := func(name pose.KeypointName) (image.Point, bool) {
		kp, ok := p.Get(name)
		if !ok || kp.Score < minScore {
			return image.Point{}, false
		}
		return image.Pt(int(kp.X), int(kp.Y)), true
	}

	for _, bone := range skeleton {
		a, okA := visible(bone[0])
		b, okB := visible(bone[1])
		if okA && okB {
			gocv.Line(frame, a, b, boneColor, 3)
		}
	}

	for _, kp := range p.Keypoints {
		if pt, ok := visible(kp.Name); ok {
			gocv.Circle(frame, pt, 4, jointColor, -1) //thickness -1 == filled circle
		}
	}
}

//plotCounter writes exercise, state and count in the top left corner
func plotCounter(frame *gocv.Mat, snap tracking.Snapshot) {
	firstLine := fmt.Sprintf("%s  reps: %d", snap.Exercise, snap.Count)
	secondLine := fmt.Sprintf("state: %s", snap.State)
	if snap.Angle != nil {
		secondLine += fmt.Sprintf("  angle: %.0f", *snap.Angle)
	}
	if snap.AssistMode {
		secondLine += fmt.Sprintf("  assisted: %d", snap.Assisted)
	}

	gocv.Rectangle(frame, image.Rect(0, 0, 320, 50), panelColor, -1)
	gocv.PutText(frame, firstLine, image.Pt(10, 20), gocv.FontHersheyPlain, 1.2, whiteRGB, 2)
	gocv.PutText(frame, secondLine, image.Pt(10, 40), gocv.FontHersheyPlain, 1, whiteRGB, 1)
}
