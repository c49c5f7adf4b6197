//go:build !debug

package tracker

const panicOnConflict = false
