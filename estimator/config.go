package estimator

import (
	"runtime"
)

// Config describes a single-pose ONNX model with a [1,1,17,3] keypoint output.
type Config struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LibraryPath is the onnxruntime shared library, platform default when empty.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// InputName is the model's image input tensor name.
	InputName string `json:"input_name" yaml:"input_name" validate:"required"`
	// OutputName is the model's keypoint output tensor name.
	OutputName string `json:"output_name" yaml:"output_name" validate:"required"`
	// InputSize is the square input edge in pixels.
	InputSize int `json:"input_size" yaml:"input_size" validate:"gt=0"`
	// IntraOpThreads parallelizes execution within graph nodes, zero for the runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads" validate:"gte=0"`
}

// DefaultConfig returns the settings for a MoveNet SinglePose Lightning export.
//
// Returns:
//   - Config: 192x192 NHWC float input named "input", output "output_0".
func DefaultConfig() Config {
	return Config{
		ModelPath:      "movenet_singlepose_lightning.onnx",
		InputName:      "input",
		OutputName:     "output_0",
		InputSize:      192,
		IntraOpThreads: 2,
	}
}

// sharedLibPath returns the onnxruntime library bundled under third_party for this platform.
func sharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.1.23.0.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
