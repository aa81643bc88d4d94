package ecs

import "github.com/rs/zerolog"

// Config holds package-wide defaults for new scenes
var Config = globalConfig{logger: zerolog.Nop()}

type globalConfig struct {
	logger zerolog.Logger
}

// SetLogger sets the logger handed to scenes created without WithLogger
func (c *globalConfig) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}
