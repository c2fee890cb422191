// Copyright (c) Clauded Authors. All rights reserved.
// Licensed under the MIT License.

// Package spin shows terminal progress while a slow operation runs.
package spin

import (
	"fmt"
	"io"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/theckman/yacspin"
)

// writer receives all spinner output. Tests substitute a buffer.
var writer io.Writer = colorable.NewColorableStdout()

// Spinner animates a title on the terminal until stopped.
type Spinner struct {
	inner *yacspin.Spinner
}

// New builds a spinner labeled with title.
func New(title string) *Spinner {
	config := yacspin.Config{
		Frequency:         200 * time.Millisecond,
		CharSet:           yacspin.CharSets[33],
		Suffix:            " " + title,
		SuffixAutoColon:   true,
		StopCharacter:     "(✓) Done",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "(x) Error",
		StopFailColors:    []string{"fgRed"},
		Writer:            writer,
	}

	spinner, _ := yacspin.New(config)
	return &Spinner{inner: spinner}
}

// Start begins the animation.
func (s *Spinner) Start() error {
	return s.inner.Start()
}

// Stop ends the animation with the success character.
func (s *Spinner) Stop() error {
	return s.inner.Stop()
}

// Println writes a line without corrupting the animation.
func (s *Spinner) Println(message string) {
	_ = s.inner.Pause()
	fmt.Fprintln(writer, message)
	_ = s.inner.Unpause()
}

// Run animates the spinner for the duration of runFn, ending with the
// success or failure character to match runFn's result.
func (s *Spinner) Run(runFn func() error) error {
	if err := s.inner.Start(); err != nil {
		return runFn()
	}

	err := runFn()
	if err != nil {
		_ = s.inner.StopFail()
		return err
	}

	_ = s.inner.Stop()
	return nil
}
