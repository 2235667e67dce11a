// Package sdlsys manages the process-wide SDL audio and video subsystem
// handle that AudioOutput.Open and VideoOutput.Open both depend on. The
// handle is reference-counted. Controller acquires it during Start's setup,
// right before opening the outputs, and releases it in Stop; it is not
// held between New and Start. original_source initializes
// the two subsystems separately, in audiooutput.cpp and videooutput.cpp;
// this package folds both into one Acquire/Release pair so Controller can
// treat "the OS audio+video surface is available" as a single resource.
package sdlsys

import (
	"fmt"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
)

var (
	mu    sync.Mutex
	count int
)

// Acquire initializes the SDL audio and video subsystems on the first
// call; subsequent concurrent acquisitions just bump the reference count.
func Acquire() error {
	mu.Lock()
	defer mu.Unlock()

	if count == 0 {
		if err := sdl.InitSubSystem(sdl.INIT_AUDIO | sdl.INIT_VIDEO); err != nil {
			return fmt.Errorf("sdlsys: initializing SDL audio/video subsystems: %w", err)
		}
	}
	count++
	return nil
}

// Release drops the reference count, tearing the subsystems down once it
// reaches zero. Safe to call on a handle that was never acquired.
func Release() {
	mu.Lock()
	defer mu.Unlock()

	if count == 0 {
		return
	}
	count--
	if count == 0 {
		sdl.QuitSubSystem(sdl.INIT_AUDIO | sdl.INIT_VIDEO)
	}
}
