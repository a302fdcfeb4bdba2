// Package pose holds the keypoint model shared by every pose source and the
// geometry derived from it.
package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/chenBenjamin97/repcounter/pkg/utils"
)

//KeypointName is one of the 17 COCO body landmarks
type KeypointName string

const (
	Nose          KeypointName = "nose"
	LeftEye       KeypointName = "left_eye"
	RightEye      KeypointName = "right_eye"
	LeftEar       KeypointName = "left_ear"
	RightEar      KeypointName = "right_ear"
	LeftShoulder  KeypointName = "left_shoulder"
	RightShoulder KeypointName = "right_shoulder"
	LeftElbow     KeypointName = "left_elbow"
	RightElbow    KeypointName = "right_elbow"
	LeftWrist     KeypointName = "left_wrist"
	RightWrist    KeypointName = "right_wrist"
	LeftHip       KeypointName = "left_hip"
	RightHip      KeypointName = "right_hip"
	LeftKnee      KeypointName = "left_knee"
	RightKnee     KeypointName = "right_knee"
	LeftAnkle     KeypointName = "left_ankle"
	RightAnkle    KeypointName = "right_ankle"
)

//Names lists the keypoints in COCO order
var Names = []KeypointName{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist,
	LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

//Valid reports whether n is one of the COCO names
func (n KeypointName) Valid() bool {
	for _, name := range Names {
		if name == n {
			return true
		}
	}
	return false
}

type Keypoint struct {
	Name  KeypointName `json:"name"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	Score float64      `json:"score"`
}

//Pose is the set of keypoints of one person in one frame
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	Score     float64    `json:"score,omitempty"`
}

//Get returns the keypoint with the given name
func (p *Pose) Get(name KeypointName) (Keypoint, bool) {
	if p == nil {
		return Keypoint{}, false
	}
	for _, kp := range p.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}

//Side identifies which half of the body a joint chain belongs to.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

//MeanScore returns the mean confidence of the named keypoints, counting missing ones as zero
func (p *Pose) MeanScore(names ...KeypointName) float64 {
	if len(names) == 0 {
		return 0
	}
	var sum float64
	for _, n := range names {
		if kp, ok := p.Get(n); ok {
			sum += kp.Score
		}
	}
	return sum / float64(len(names))
}

//BestSide returns the side whose chain has the higher mean confidence. Ties go left
func (p *Pose) BestSide(left, right []KeypointName) Side {
	if p.MeanScore(right...) > p.MeanScore(left...) {
		return Right
	}
	return Left
}

//Validate checks names are COCO names without duplicates and scores are within [0, 1]
func (p *Pose) Validate() error {
	if p == nil || len(p.Keypoints) == 0 {
		return errors.New("pose has no keypoints")
	}
	if len(p.Keypoints) > utils.KeypointsNum {
		return fmt.Errorf("pose has %d keypoints, at most %d expected", len(p.Keypoints), utils.KeypointsNum)
	}
	seen := make(map[KeypointName]bool, len(p.Keypoints))
	for _, kp := range p.Keypoints {
		if !kp.Name.Valid() {
			return fmt.Errorf("unknown keypoint '%s'", kp.Name)
		}
		if seen[kp.Name] {
			return fmt.Errorf("duplicate keypoint '%s'", kp.Name)
		}
		seen[kp.Name] = true
		if kp.Score < 0 || kp.Score > 1 || math.IsNaN(kp.Score) {
			return fmt.Errorf("keypoint '%s': score %v out of range", kp.Name, kp.Score)
		}
	}
	return nil
}
