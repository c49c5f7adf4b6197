//go:build debug

package tracker

const panicOnConflict = true
