package service

import "github.com/roach88/catalog/internal/model"

// Clock supplies wall-clock time in Unix milliseconds.
//
// Retention purging compares record ages against it. Tests substitute a
// manual clock so ages are exact.
type Clock interface {
	Now() int64
}

// SystemClock reads the process wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 {
	return model.Now()
}
