package beanstalk

import (
	"github.com/pior/beanstalk/internal"
	"github.com/zeebo/xxh3"
)

// TubeSelector picks which tube a keyed job goes to.
// It receives the key and the number of tubes and returns an index in [0, tubeCount).
type TubeSelector func(key string, tubeCount int) int

// DefaultTubeSelector uses Jump Hash over xxh3 for consistent tube selection.
// Adding a tube at the end of the list only moves 1/n of the keys.
func DefaultTubeSelector(key string, tubeCount int) int {
	return internal.JumpHash(xxh3.HashString(key), tubeCount)
}

// staticSelector is used in tests to always select a specific tube.
func staticSelector(index int) TubeSelector {
	return func(key string, tubeCount int) int {
		return index % tubeCount
	}
}
