package reps

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chenBenjamin97/repcounter/pkg/pose"
)

var ErrUnknownExercise = errors.New("unknown exercise")

//Joints is a three point chain; the angle is measured at the middle point.
type Joints [3]pose.KeypointName

func (j Joints) names() []pose.KeypointName {
	return []pose.KeypointName{j[0], j[1], j[2]}
}

//Exercise describes how a joint angle maps to the up and down positions.
//
//With Flexion set, the up position is the bent joint (curls, pull-ups): the
//limb is up at or below UpAngle and down at or above DownAngle. Otherwise
//the up position is the extended joint (squats, push-ups): up at or above
//UpAngle and down at or below DownAngle. Angles in between are ignored.
type Exercise struct {
	Name      string  `json:"name" mapstructure:"name"`
	Left      Joints  `json:"left" mapstructure:"-"`
	Right     Joints  `json:"right" mapstructure:"-"`
	Flexion   bool    `json:"flexion" mapstructure:"flexion"`
	UpAngle   float64 `json:"upAngle" mapstructure:"up_angle"`
	DownAngle float64 `json:"downAngle" mapstructure:"down_angle"`
	// AboveTolerance, when positive, additionally requires the last joint of
	// the chain to be above the first one (in pixels) for the up position.
	AboveTolerance float64 `json:"aboveTolerance,omitempty" mapstructure:"above_tolerance"`
	RequireAbove   bool    `json:"requireAbove,omitempty" mapstructure:"require_above"`
}

func (e Exercise) joints(side pose.Side) Joints {
	if side == pose.Right {
		return e.Right
	}
	return e.Left
}

//Validate checks that the thresholds leave a non empty band between up and down
func (e Exercise) Validate() error {
	if e.Name == "" {
		return errors.New("exercise name is empty")
	}
	if e.UpAngle < 0 || e.UpAngle > 180 || e.DownAngle < 0 || e.DownAngle > 180 {
		return fmt.Errorf("exercise %s: angles must be within [0, 180]", e.Name)
	}
	if e.Flexion && e.UpAngle >= e.DownAngle {
		return fmt.Errorf("exercise %s: up angle %.1f must be below down angle %.1f", e.Name, e.UpAngle, e.DownAngle)
	}
	if !e.Flexion && e.UpAngle <= e.DownAngle {
		return fmt.Errorf("exercise %s: up angle %.1f must be above down angle %.1f", e.Name, e.UpAngle, e.DownAngle)
	}
	return nil
}

func (e Exercise) classify(angle float64) Position {
	if e.Flexion {
		switch {
		case angle <= e.UpAngle:
			return PositionUp
		case angle >= e.DownAngle:
			return PositionDown
		}
		return PositionBetween
	}

	switch {
	case angle >= e.UpAngle:
		return PositionUp
	case angle <= e.DownAngle:
		return PositionDown
	}
	return PositionBetween
}

var (
	leftArm  = Joints{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist}
	rightArm = Joints{pose.RightShoulder, pose.RightElbow, pose.RightWrist}
	leftLeg  = Joints{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle}
	rightLeg = Joints{pose.RightHip, pose.RightKnee, pose.RightAnkle}
)

//Catalog is a set of exercises by name.
type Catalog map[string]Exercise

func DefaultCatalog() Catalog {
	return Catalog{
		"bicep_curl": {
			Name: "bicep_curl", Left: leftArm, Right: rightArm,
			Flexion: true, UpAngle: 50, DownAngle: 150,
		},
		"pull_up": {
			Name: "pull_up", Left: leftArm, Right: rightArm,
			Flexion: true, UpAngle: 70, DownAngle: 150,
		},
		"push_up": {
			Name: "push_up", Left: leftArm, Right: rightArm,
			UpAngle: 155, DownAngle: 95,
		},
		"squat": {
			Name: "squat", Left: leftLeg, Right: rightLeg,
			UpAngle: 160, DownAngle: 100,
		},
		"shoulder_press": {
			Name: "shoulder_press", Left: leftArm, Right: rightArm,
			UpAngle: 150, DownAngle: 90,
			RequireAbove: true, AboveTolerance: 10,
		},
	}
}

//Get returns the named exercise
func (c Catalog) Get(name string) (Exercise, error) {
	ex, ok := c[name]
	if !ok {
		return Exercise{}, fmt.Errorf("%w: %s", ErrUnknownExercise, name)
	}
	return ex, nil
}

//Names returns the sorted exercise names
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//Override replaces thresholds of existing exercises, keeping their joints. Unknown names are errors
func (c Catalog) Override(overrides map[string]Exercise) error {
	for name, o := range overrides {
		ex, ok := c[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownExercise, name)
		}
		if o.UpAngle != 0 {
			ex.UpAngle = o.UpAngle
		}
		if o.DownAngle != 0 {
			ex.DownAngle = o.DownAngle
		}
		if o.AboveTolerance != 0 {
			ex.AboveTolerance = o.AboveTolerance
		}
		if err := ex.Validate(); err != nil {
			return err
		}
		c[name] = ex
	}
	return nil
}
