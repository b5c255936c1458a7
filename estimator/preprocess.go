package estimator

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-posture/pose"
)

// prepareInput resizes img to size x size and writes it into dst as NHWC RGB
// values in [0, 255].
//
// Arguments:
//   - img: The camera image.
//   - size: The model input edge.
//   - dst: The input tensor backing slice.
//
// Returns:
//   - error: An error if dst cannot hold the image.
func prepareInput(img image.Image, size int, dst []float32) error {
	need := size * size * 3
	if len(dst) < need {
		return fmt.Errorf("destination tensor only holds %d floats, needs %d", len(dst), need)
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	bounds := resized.Bounds()

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			dst[i] = float32(r >> 8)
			dst[i+1] = float32(g >> 8)
			dst[i+2] = float32(b >> 8)
			i += 3
		}
	}
	return nil
}

// decodeKeypoints converts a [1,1,17,3] (y, x, score) output, normalized to
// [0, 1], into a frame in source image pixels.
//
// The frame score is the mean keypoint score.
//
// Arguments:
//   - data: The output tensor data.
//   - width: The source image width.
//   - height: The source image height.
//
// Returns:
//   - pose.Frame: The decoded frame.
//   - error: An error if the output has the wrong shape.
func decodeKeypoints(data []float32, width, height int) (pose.Frame, error) {
	n := len(pose.KeypointNames)
	if len(data) != n*3 {
		return pose.Frame{}, fmt.Errorf("unexpected output size %d, want %d", len(data), n*3)
	}

	out := tensor.New(tensor.WithShape(1, 1, n, 3), tensor.WithBacking(data))

	keypoints := make([]pose.Keypoint, 0, n)
	var total float32
	for k, name := range pose.KeypointNames {
		y, err := at(out, k, 0)
		if err != nil {
			return pose.Frame{}, err
		}
		x, err := at(out, k, 1)
		if err != nil {
			return pose.Frame{}, err
		}
		score, err := at(out, k, 2)
		if err != nil {
			return pose.Frame{}, err
		}

		keypoints = append(keypoints, pose.Keypoint{
			Name:       name,
			X:          x * float32(width),
			Y:          y * float32(height),
			Confidence: score,
		})
		total += score
	}

	return pose.NewFrame(total/float32(n), keypoints)
}

func at(t *tensor.Dense, k, field int) (float32, error) {
	v, err := t.At(0, 0, k, field)
	if err != nil {
		return 0, fmt.Errorf("reading keypoint %d field %d: %w", k, field, err)
	}
	f, ok := v.(float32)
	if !ok {
		return 0, fmt.Errorf("keypoint %d field %d is %T, want float32", k, field, v)
	}
	return f, nil
}
