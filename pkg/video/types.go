package video

import (
	"errors"
	"fmt"

	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"
)

var (
	ErrCameraUnavailable = fmt.Errorf("camera unavailable: %w", tracking.ErrSourceUnavailable)
	ErrModelNotLoaded    = fmt.Errorf("pose model not loaded: %w", tracking.ErrSourceNotReady)
	errNoFrame           = errors.New("no frame")
)

//openPoseParts maps the OpenPose COCO output channels to keypoint names. Channel 1 (neck) has no COCO keypoint
var openPoseParts = []pose.KeypointName{
	pose.Nose, "", pose.RightShoulder, pose.RightElbow, pose.RightWrist,
	pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist,
	pose.RightHip, pose.RightKnee, pose.RightAnkle,
	pose.LeftHip, pose.LeftKnee, pose.LeftAnkle,
	pose.RightEye, pose.LeftEye, pose.RightEar, pose.LeftEar,
}

//skeleton is the list of bones drawn between keypoints
var skeleton = [][2]pose.KeypointName{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftElbow}, {pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow}, {pose.RightElbow, pose.RightWrist},
	{pose.LeftShoulder, pose.LeftHip}, {pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftHip, pose.LeftKnee}, {pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee}, {pose.RightKnee, pose.RightAnkle},
	{pose.Nose, pose.LeftEye}, {pose.Nose, pose.RightEye},
	{pose.LeftEye, pose.LeftEar}, {pose.RightEye, pose.RightEar},
}
