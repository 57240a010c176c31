/*
Package eyeguard monitors a person's eyes on a live video stream and raises
operator alarms on drowsiness or loss of attention. It localizes the pupil
inside a cropped eye region, fuses multiple weak signals into a robust
open/closed classification per eye, and drives a temporal state machine
which converts the raw per-frame signals into debounced, hysteresis
protected alarms.

The package provides a command line interface which replays a recorded frame
sequence through the pipeline. To check the supported commands type:

	$ eyeguard --help

In case you wish to integrate the API in a self constructed environment here
is a simple example:

	package main

	import (
		"fmt"
		"time"

		"github.com/ken001111/eyeguard"
	)

	func main() {
		g, err := eyeguard.NewGaze(eyeguard.DefaultConfig())
		if err != nil {
			fmt.Printf("Error initializing the pipeline: %s", err.Error())
			return
		}

		for frame := range frames {
			g.Refresh(frame, time.Now())
			if g.Status().DrowsinessAlarm {
				fmt.Println("operator is drowsy")
			}
		}
	}
*/
package eyeguard
