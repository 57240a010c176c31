package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ken001111/eyeguard"
	"github.com/ken001111/eyeguard/utils"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┬ ┬┌─┐┌─┐┬ ┬┌─┐┬─┐┌┬┐
├┤ └┬┘├┤ │ ┬│ │├─┤├┬┘ ││
└─┘ ┴ └─┘└─┘└─┘┴ ┴┴└──┴┘

Pupil tracking and drowsiness monitoring pipeline.
    Version: %s

`

// Version indicates the current build version.
var Version string

// alarmEvent captures an alarm transition for the end of run report.
type alarmEvent struct {
	frame   int
	path    string
	message string
}

var (
	// Flags
	source      = flag.String("in", "", "Source directory with the frame sequence")
	cascade     = flag.String("cc", "data", "Cascade classifiers directory")
	tracker     = flag.String("tracker", "pigo", "Tracker backend")
	threshold   = flag.Int("threshold", eyeguard.DefaultPupilThreshold, "Pupil binarization threshold")
	perclos     = flag.Float64("perclos", eyeguard.DefaultPerclosThreshold, "PERCLOS alarm threshold")
	window      = flag.Int("window", eyeguard.DefaultWindowSize, "PERCLOS window size in frames")
	sustained   = flag.Float64("sustained", eyeguard.DefaultSustainedDuration.Seconds(), "Sustained drowsiness duration in seconds")
	cooldown    = flag.Float64("cooldown", eyeguard.DefaultCooldown.Seconds(), "Alarm cooldown in seconds")
	outOfFrame  = flag.Int("oof", eyeguard.DefaultOutOfFrameThreshold, "Consecutive missed faces before the out of frame alarm")
	logfile     = flag.String("log", "", "Per-frame measurement log (CSV)")
	rate        = flag.Float64("rate", 30.0, "Assumed capture rate of the frame sequence")
	multiMethod = flag.Bool("multi", false, "Corroborate eye closure with secondary signals")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, fmt.Sprintf(HelpBanner, Version))
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(*source) == 0 {
		flag.Usage()
		log.Fatal(fmt.Sprintf("%s%s",
			utils.DecorateText("\nPlease provide a directory containing the frame sequence!", utils.ErrorMessage),
			utils.DefaultColor,
		))
	}
	if *rate <= 0 {
		log.Fatalf(utils.DecorateText("The capture rate must be positive!\n", utils.ErrorMessage))
	}

	cfg := eyeguard.DefaultConfig()
	cfg.Tracker = *tracker
	cfg.PupilThreshold = *threshold
	cfg.Classifier.MultiMethod = *multiMethod
	cfg.Monitor.PerclosThreshold = *perclos
	cfg.Monitor.WindowSize = *window
	cfg.Monitor.SustainedDuration = time.Duration(*sustained * float64(time.Second))
	cfg.Monitor.Cooldown = time.Duration(*cooldown * float64(time.Second))
	cfg.Monitor.OutOfFrameThreshold = *outOfFrame
	cfg.TrackerCfg.CascadeDir = *cascade

	gaze, err := eyeguard.NewGaze(cfg)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to initialize the pipeline: %v\n", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	frames, err := frameSequence(*source)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to read the frame sequence: %v\n", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}
	if len(frames) == 0 {
		log.Fatalf(utils.DecorateText("No supported image files found in the source directory!\n", utils.ErrorMessage))
	}

	var logger *eyeguard.Logger
	if len(*logfile) > 0 {
		out, err := os.OpenFile(*logfile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Unable to create the log file: %v\n", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
		defer out.Close()

		logger, err = eyeguard.NewLogger(out, 100, true)
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Unable to initialize the logger: %v\n", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
		defer logger.Flush()
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("👁 EYEGUARD", utils.StatusMessage),
		utils.DecorateText("is analyzing the frame sequence...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, time.Millisecond*200)
	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	if interactive {
		spinner.Start()
	}

	now := time.Now()
	events := replay(gaze, frames, *rate, logger)

	if interactive {
		spinner.StopMsg = fmt.Sprintf("%s %s\n",
			utils.DecorateText("👁 EYEGUARD", utils.StatusMessage),
			utils.DecorateText("is analyzing the frame sequence... ✔", utils.DefaultMessage))
		spinner.Stop()
	}

	for _, ev := range events {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			utils.DecorateText(fmt.Sprintf("[frame %d: %s]", ev.frame, filepath.Base(ev.path)), utils.ErrorMessage),
			utils.DecorateText(ev.message, utils.DefaultMessage),
		)
	}

	status := gaze.Status()
	fmt.Fprintf(os.Stderr, "\nFinal drowsiness score: %s\n",
		utils.DecorateText(fmt.Sprintf("%.2f", status.DrowsinessScore), utils.SuccessMessage))
	fmt.Fprintf(os.Stderr, "Execution time: %s\n",
		utils.DecorateText(fmt.Sprintf("%s", utils.FormatTime(time.Since(now))), utils.SuccessMessage))
}

// replay feeds the frame sequence through the pipeline with synthetic
// timestamps spaced by the capture rate and collects the alarm transitions.
func replay(gaze *eyeguard.Gaze, frames []string, rate float64, logger *eyeguard.Logger) []alarmEvent {
	var events []alarmEvent
	var prev eyeguard.Status

	perf := eyeguard.NewPerformanceMonitor(0)
	interval := time.Duration(float64(time.Second) / rate)
	stamp := time.Now()

	for i, path := range frames {
		img, err := imaging.Open(path)
		if err != nil {
			events = append(events, alarmEvent{
				frame:   i,
				path:    path,
				message: fmt.Sprintf("skipped, unable to decode: %v", err),
			})
			continue
		}

		start := perf.StartFrame()
		gaze.Refresh(img, stamp)
		perf.EndFrame(start)
		stamp = stamp.Add(interval)

		status := gaze.Status()
		if status.OutOfFrameAlarm && !prev.OutOfFrameAlarm {
			events = append(events, alarmEvent{frame: i, path: path, message: "subject out of frame"})
		}
		if status.DrowsinessAlarm && !prev.DrowsinessAlarm {
			events = append(events, alarmEvent{frame: i, path: path, message: "sustained drowsiness detected"})
		}
		prev = status

		if logger != nil {
			if err := logger.Log(gaze.Record(perf.FPS(), perf.LatencyMs())); err != nil {
				events = append(events, alarmEvent{frame: i, path: path, message: fmt.Sprintf("log write failed: %v", err)})
			}
		}
	}
	return events
}

// frameSequence collects the supported image files of the source directory
// in lexical order. Files whose content does not sniff as an image are
// skipped regardless of their extension.
func frameSequence(dir string) ([]string, error) {
	validExtensions := []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, ex := range validExtensions {
			if ex == ext {
				path := filepath.Join(dir, entry.Name())
				if mime, err := utils.DetectContentType(path); err == nil &&
					strings.HasPrefix(mime, "image/") {
					frames = append(frames, path)
				}
				break
			}
		}
	}
	sort.Strings(frames)
	return frames, nil
}
