/*
NAME
  Config.go

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package config contains the configuration settings shared by the
// hdmi capture engine's device.AVDevice adapters.
package config

import (
	"github.com/ausocean/utils/logging"
)

// Config provides parameters relevant to an AVDevice instance. A new config
// must be passed to the device's Set method. Default values for these fields
// are defined as consts above the Variables table in variables.go.
type Config struct {
	// InputPath selects the device to capture from, e.g. a /dev/hdmicapN
	// path for device/hdmiusb.
	InputPath string

	// Logger holds an implementation of the Logger interface that the
	// device should log through.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	Suppress bool // Holds logger suppression state.
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
