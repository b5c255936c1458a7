package estimator

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-posture/pose"
)

// ImageSource supplies the most recent camera image.
type ImageSource interface {
	Snapshot() (image.Image, error)
}

// ONNX estimates a single pose from the latest camera image with onnxruntime.
//
// The input and output tensors are owned by the session and reused for every
// call, so estimations are serialized.
type ONNX struct {
	config  Config
	source  ImageSource
	log     *zap.Logger
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNX loads the model and binds it to an image source.
//
// Arguments:
//   - config: The model configuration.
//   - source: The camera image source.
//   - log: Logger, nil for none.
//
// Returns:
//   - *ONNX: The estimator; Close must be called to release the session.
//   - error: An error if the runtime or the model cannot be loaded.
//
// @example
// est, err := estimator.NewONNX(estimator.DefaultConfig(), camera, log)
// if err != nil {
//     log.Fatal("model load failed", zap.Error(err))
// }
// defer est.Close()
func NewONNX(config Config, source ImageSource, log *zap.Logger) (*ONNX, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if source == nil {
		return nil, errors.New("image source is required")
	}

	libPath := config.LibraryPath
	if libPath == "" {
		libPath = sharedLibPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model not found at %s", config.ModelPath)
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "error initializing ORT environment")
		}
	}

	size := int64(config.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, int64(len(pose.KeypointNames)), 3))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if config.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(config.IntraOpThreads); err != nil {
			log.Warn("could not set intra-op threads", zap.Error(err))
		}
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		log.Warn("could not set graph optimization level", zap.Error(err))
	}

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	log.Info("loaded pose model", zap.String("model", config.ModelPath), zap.Int("input_size", config.InputSize))

	return &ONNX{
		config:  config,
		source:  source,
		log:     log,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// Estimate runs the model on the latest camera image.
//
// Arguments:
//   - ctx: Checked before inference; a cancelled context skips the run.
//
// Returns:
//   - pose.Frame: The estimated pose in camera pixel coordinates.
//   - error: ErrNoImage without a camera frame, or an inference error.
func (o *ONNX) Estimate(ctx context.Context) (pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pose.Frame{}, err
	}

	img, err := o.source.Snapshot()
	if err != nil {
		return pose.Frame{}, errors.Wrap(err, "snapshot failed")
	}
	if img == nil {
		return pose.Frame{}, ErrNoImage
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return pose.Frame{}, fmt.Errorf("estimator closed")
	}

	if err := prepareInput(img, o.config.InputSize, o.input.GetData()); err != nil {
		return pose.Frame{}, errors.Wrap(err, "failed to prepare input")
	}
	if err := o.session.Run(); err != nil {
		return pose.Frame{}, errors.Wrap(err, "failed to run inference")
	}

	bounds := img.Bounds()
	return decodeKeypoints(o.output.GetData(), bounds.Dx(), bounds.Dy())
}

// Close releases the session and its tensors.
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.input != nil {
		o.input.Destroy()
		o.input = nil
	}
	if o.output != nil {
		o.output.Destroy()
		o.output = nil
	}
	if o.session != nil {
		err := o.session.Destroy()
		o.session = nil
		return err
	}
	return nil
}
