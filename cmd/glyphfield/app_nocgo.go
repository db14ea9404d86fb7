//go:build tinygo || !cgo

package main

import (
	"errors"

	charmlog "github.com/charmbracelet/log"
)

func run(logger *charmlog.Logger, cfg config) error {
	return errors.New("glyphfield requires CGo and is not supported on TinyGo")
}
