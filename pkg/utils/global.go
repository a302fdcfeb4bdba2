package utils

import "time"

//KeypointsNum is the number of keypoints in a single pose (COCO skeleton)
const KeypointsNum = 17

//FrameWidth is the default camera capture width
const FrameWidth = 640

//FrameHeight is the default camera capture height
const FrameHeight = 480

//FrameInterval is the default delay between two iterations of the tracking loop (~30 fps)
const FrameInterval = 33 * time.Millisecond

//IdleWindow is the time without any state transition after which assist mode counts a rep
const IdleWindow = 3000 * time.Millisecond

//MinKeypointScore is the default minimum confidence a keypoint needs before geometry is derived from it
const MinKeypointScore = 0.3

//HeatmapMinConfidence is the minimum heatmap peak for the pose network to report a body part
const HeatmapMinConfidence = 0.1

//SmoothingWindow is the number of recent joint angles the detector takes the median of
const SmoothingWindow = 5

//PushedPoseMaxAge is how long a pose pushed by a client stays usable
const PushedPoseMaxAge = time.Second

//SourceCamera, SourceClient and SourceProcess are the supported pose sources
const (
	SourceCamera  = "camera"
	SourceClient  = "client"
	SourceProcess = "process"
)

//Sources lists all the supported pose sources
var Sources = []string{SourceCamera, SourceClient, SourceProcess}
