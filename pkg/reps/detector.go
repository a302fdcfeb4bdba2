package reps

import (
	"math"

	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/utils"
)

//Detector classifies poses for one exercise. It keeps a short history of joint angles, so use one detector per tracking session.
//The side is locked on the first valid pose and only changes when its joints stop passing the confidence gate
type Detector struct {
	exercise Exercise
	minScore float64
	window   *utils.Window
	last     float64
	side     pose.Side
	locked   bool
}

func NewDetector(ex Exercise, minScore float64, smoothing int) *Detector {
	return &Detector{
		exercise: ex,
		minScore: minScore,
		window:   utils.NewWindow(smoothing),
		last:     math.NaN(),
	}
}

//Detect returns the position shown by the pose. Missing or low confidence joints give PositionUnknown
func (d *Detector) Detect(p *pose.Pose) Position {
	ex := d.exercise

	if !d.locked || !pose.HasValidKeypoints(p, ex.joints(d.side).names(), d.minScore) {
		side := p.BestSide(ex.Left.names(), ex.Right.names())
		if !pose.HasValidKeypoints(p, ex.joints(side).names(), d.minScore) {
			return PositionUnknown
		}
		if d.locked && side != d.side {
			// angles of the other limb must not be smoothed together with these
			d.window.Reset()
		}
		d.side, d.locked = side, true
	}
	joints := ex.joints(d.side)

	a, _ := p.Get(joints[0])
	b, _ := p.Get(joints[1])
	c, _ := p.Get(joints[2])

	angle := pose.Angle(a, b, c)
	if math.IsNaN(angle) {
		return PositionUnknown
	}

	d.window.Push(angle)
	smoothed := d.window.Median()
	d.last = smoothed

	pos := ex.classify(smoothed)
	if pos == PositionUp && ex.RequireAbove && !pose.IsAbove(c, a, ex.AboveTolerance) {
		return PositionBetween
	}

	return pos
}

//LastAngle returns the last smoothed angle, NaN before the first valid pose
func (d *Detector) LastAngle() float64 {
	return d.last
}

func (d *Detector) Exercise() Exercise {
	return d.exercise
}

//Side returns the side the detector follows and whether one was chosen yet
func (d *Detector) Side() (pose.Side, bool) {
	return d.side, d.locked
}

func (d *Detector) Reset() {
	d.window.Reset()
	d.last = math.NaN()
	d.locked = false
}
