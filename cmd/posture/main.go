package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-posture/capture"
	"github.com/nvr-ai/go-posture/config"
	"github.com/nvr-ai/go-posture/controller"
	"github.com/nvr-ai/go-posture/countdown"
	"github.com/nvr-ai/go-posture/display"
	"github.com/nvr-ai/go-posture/estimator"
	"github.com/nvr-ai/go-posture/logger"
	"github.com/nvr-ai/go-posture/monitor"
	"github.com/nvr-ai/go-posture/profiler"
	"github.com/nvr-ai/go-posture/server"
	"github.com/nvr-ai/go-posture/training"
)

const (
	// DefaultConfigPath is read when it exists and no -config flag is given.
	DefaultConfigPath = "posture.yaml"
	// windowName is the title of the preview window.
	windowName = "Posture Trainer"
	// profileInterval is how often tick statistics are logged.
	profileInterval = time.Minute
)

// options are the flags that are not part of the config file.
type options struct {
	replayDir  string
	showWindow bool
}

func main() {
	var (
		configPath string
		deviceID   int
		modelPath  string
		listen     string
		opts       options
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML config file (default posture.yaml if present)")
	flag.IntVar(&deviceID, "device", 0, "Video capture device ID")
	flag.StringVar(&modelPath, "model", "", "Path to the single-pose ONNX model")
	flag.StringVar(&listen, "listen", "", "HTTP control server address, e.g. :8080")
	flag.StringVar(&opts.replayDir, "replay", "", "Directory of frame-N.jpg images to use instead of the camera")
	flag.BoolVar(&opts.showWindow, "show-window", false, "Show the camera preview with keypoints")
	flag.Parse()

	if configPath == "" {
		if _, err := os.Stat(DefaultConfigPath); err == nil {
			configPath = DefaultConfigPath
		}
	}

	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Camera.DeviceID = deviceID
		case "model":
			cfg.Estimator.ModelPath = modelPath
		case "listen":
			cfg.Server.Enabled = listen != ""
			cfg.Server.Address = listen
		}
	})

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	os.Exit(exitCode(run(cfg, opts, zlog), zlog))
}

// exitCode logs a run failure and flushes the logger before the process exits.
func exitCode(err error, log *zap.Logger) int {
	code := 0
	if err != nil {
		log.Error("posture trainer failed", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg config.Config, opts options, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		source estimator.ImageSource
		camera *capture.Camera
		replay *capture.Replay
	)
	if opts.replayDir != "" {
		frames, err := capture.LoadRecordedFrames(opts.replayDir)
		if err != nil {
			return err
		}
		replay, err = capture.NewReplay(frames)
		if err != nil {
			return err
		}
		source = replay
		log.Info("replaying recorded frames", zap.String("dir", opts.replayDir), zap.Int("frames", len(frames)))
	} else {
		var err error
		camera, err = capture.OpenCamera(cfg.Camera, log.Named("camera"))
		if err != nil {
			return err
		}
		defer camera.Close()
		source = camera
	}

	est, err := estimator.NewONNX(cfg.Estimator, source, log.Named("estimator"))
	if err != nil {
		return err
	}
	defer est.Close()

	prof := profiler.New(profiler.Options{ReportInterval: profileInterval}, log.Named("profiler"))
	prof.Start()
	defer prof.Stop()

	hub := server.NewHub(log.Named("ws"))
	overlay := display.NewOverlay(cfg.Overlay)

	output := display.Fanout{display.NewConsole("output", os.Stdout), hub.Sink(server.ChannelOutput), overlay}
	timerOutput := display.Fanout{display.NewConsole("timer", os.Stdout), hub.Sink(server.ChannelTimer)}

	store := training.NewStore()
	trainer := training.NewTrainer(cfg.Training, est, store, log.Named("training"))
	session := monitor.New(cfg.Monitor, est, store, controller.FeedbackSink(output),
		monitor.WithLogger(log.Named("monitor")),
		monitor.WithProfiler(prof),
		monitor.WithAnalysis(cfg.Analysis),
		monitor.WithObserver(overlay),
	)
	timer := countdown.New(cfg.Countdown, timerOutput, log.Named("countdown"))

	ctrl := controller.New(trainer, session, timer, store, output, log.Named("controller"))
	defer ctrl.Close()

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server, ctrl, hub, log.Named("server"))
		go func() {
			if err := srv.Listen(); err != nil {
				log.Error("control server stopped", zap.Error(err))
			}
		}()
		defer func() {
			if err := srv.Shutdown(); err != nil {
				log.Warn("control server shutdown", zap.Error(err))
			}
		}()
	}

	fmt.Println("commands: t = train, m = toggle monitoring, c <seconds> = countdown, s = status, q = quit")
	go controlLoop(ctx, os.Stdin, ctrl, log, stop)

	if opts.showWindow {
		previewLoop(ctx, camera, replay, overlay, stop, log)
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	return nil
}

// controlLoop reads single-letter commands from r until it closes or q is entered.
func controlLoop(ctx context.Context, r io.Reader, ctrl *controller.Controller, log *zap.Logger, quit func()) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "t", "train":
			go func() {
				if err := ctrl.Train(ctx); err != nil {
					log.Warn("training not completed", zap.Error(err))
				}
			}()
		case "m", "monitor":
			ctrl.ToggleMonitoring()
		case "c", "countdown":
			if len(fields) < 2 {
				fmt.Println("usage: c <seconds>")
				continue
			}
			seconds, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Printf("invalid duration %q\n", fields[1])
				continue
			}
			ctrl.StartCountdown(seconds)
		case "s", "status":
			status := ctrl.Status()
			fmt.Printf("training=%t monitoring=%t reference=%t countdown=%s feedback=%q\n",
				status.Training, status.Monitoring, status.HasReference,
				countdown.Format(status.CountdownRemaining), status.LastFeedback)
		case "q", "quit":
			quit()
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

// previewLoop shows the latest frame with the overlay until ctx is done or q is pressed.
// It must run on the main goroutine.
func previewLoop(ctx context.Context, camera *capture.Camera, replay *capture.Replay, overlay *display.Overlay, quit func(), log *zap.Logger) {
	window := gocv.NewWindow(windowName)
	defer window.Close()

	img := gocv.NewMat()
	defer img.Close()

	for ctx.Err() == nil {
		if !nextPreviewFrame(camera, replay, &img, log) {
			window.WaitKey(10)
			continue
		}

		overlay.Draw(&img)
		window.IMShow(img)
		if key := window.WaitKey(30); key == 'q' {
			quit()
			return
		}
	}
}

// nextPreviewFrame copies the frame the estimator last saw into dst. It never
// advances the replay sequence.
func nextPreviewFrame(camera *capture.Camera, replay *capture.Replay, dst *gocv.Mat, log *zap.Logger) bool {
	if camera != nil {
		return camera.CopyLatest(dst)
	}
	if replay == nil {
		return false
	}

	mat, err := gocv.ImageToMatRGB(replay.Current())
	if err != nil {
		log.Debug("could not convert preview frame", zap.Error(err))
		return false
	}
	defer mat.Close()

	mat.CopyTo(dst)
	return true
}
