package config

import "go.uber.org/fx"

// Path is the optional configuration file location handed to Load.
type Path string

var Module = fx.Module("config",
	fx.Provide(func(path Path) (Config, error) {
		return Load(string(path))
	}),
)
