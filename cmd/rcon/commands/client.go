package commands

import (
	"fmt"

	"github.com/cavarest/rcon"
)

// dialFromFlags connects using the persistent flag values parsed by the
// root command.
func dialFromFlags() (*rcon.Client, error) {
	cs, err := resolveCharset(charsetName)
	if err != nil {
		return nil, err
	}
	strat, err := resolveStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	client, err := rcon.Dial(addr, password,
		rcon.WithDialTimeout(dialTimeout),
		rcon.WithCharset(cs),
		rcon.WithFragmentStrategy(strat),
		rcon.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	return client, nil
}
