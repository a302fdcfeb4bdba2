package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

func vec(k Keypoint) r2.Vec {
	return r2.Vec{X: k.X, Y: k.Y}
}

//Angle returns the angle at b formed by the segments b->a and b->c, in degrees within [0, 180].
//It is NaN when either segment has zero length
func Angle(a, b, c Keypoint) float64 {
	ba := r2.Sub(vec(a), vec(b))
	bc := r2.Sub(vec(c), vec(b))

	if r2.Norm(ba) == 0 || r2.Norm(bc) == 0 {
		return math.NaN()
	}

	// atan2 stays exact near 0 and 180 degrees, where acos of the cosine does not
	return math.Atan2(math.Abs(r2.Cross(ba, bc)), r2.Dot(ba, bc)) * 180 / math.Pi
}

//Distance returns the euclidean distance between two keypoints
func Distance(a, b Keypoint) float64 {
	return r2.Norm(r2.Sub(vec(a), vec(b)))
}

//IsAbove reports whether a is higher in the image than b by more than tolerance pixels. Image y grows downward
func IsAbove(a, b Keypoint, tolerance float64) bool {
	return a.Y < b.Y-tolerance
}

func Midpoint(a, b Keypoint) Keypoint {
	m := r2.Scale(0.5, r2.Add(vec(a), vec(b)))
	return Keypoint{X: m.X, Y: m.Y, Score: math.Min(a.Score, b.Score)}
}

//HasValidKeypoints reports whether every named keypoint is present with a score of at least minScore.
//Without names it reports whether any keypoint of the pose reaches minScore
func HasValidKeypoints(p *Pose, names []KeypointName, minScore float64) bool {
	if p == nil {
		return false
	}

	if len(names) == 0 {
		for _, kp := range p.Keypoints {
			if kp.Score >= minScore {
				return true
			}
		}
		return false
	}

	for _, n := range names {
		kp, ok := p.Get(n)
		if !ok || kp.Score < minScore {
			return false
		}
	}
	return true
}
