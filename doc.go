/*
Package facs detects facial action units from tracked face landmarks and
infers the emotional state they encode, following the Facial Action Coding
System. From a single frame of 68 landmark points it scores the individual
muscle movements, grades their intensity on the FACS A-E scale, composes
the combined FACS code and ranks the basic emotions together with their
valence and arousal.

The package provides a command line interface for replaying landmark
corpora and streaming synthetic frames. To check the supported commands type:

	$ facsd --help

In case you wish to integrate the API in a self constructed environment here
is a simple example:

	package main

	import (
		"fmt"
		"github.com/edvanssen/facs"
	)

	func main() {
		analyzer := facs.NewAnalyzer()

		res := analyzer.AnalyzePoints(points)
		fmt.Println(res.FACSCode, res.DominantEmotion().Emotion)
	}

Streaming callers wrap the same analyzer in a Pipeline, which fans frames
out over a worker pool behind bounded queues and always favors the most
recent frame over a growing backlog.
*/
package facs
