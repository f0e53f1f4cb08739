package factory

import (
	"fmt"
	"github.com/allape/rein/config"
	"github.com/allape/rein/kvm/keymouse"
	"github.com/allape/rein/kvm/keymouse/noop"
	"github.com/allape/rein/kvm/keymouse/ydotool"
)

// ResolverFromConfig returns the process-wide resolver for the configured executable.
func ResolverFromConfig(conf config.Config) *ydotool.Resolver {
	return ydotool.Default(&ydotool.Options{
		Executable: conf.Driver.Executable,
		Cooldown:   conf.Driver.Cooldown(),
	})
}

func KeyMouseFromConfig(conf config.Config) (km keymouse.Driver, err error) {
	switch conf.Driver.Type {
	case config.DriverNone:
		km = noop.New()
	case config.DriverYdotool:
		l.Info().Println("input driver is", conf.Driver.Executable, conf.Driver.Subcommand)
		km = &keymouse.Fallback{
			Primary:   ydotool.New(ResolverFromConfig(conf), conf.Driver.Subcommand),
			Secondary: noop.New(),
		}
	default:
		return nil, fmt.Errorf("unknown input driver: %s", conf.Driver.Type)
	}

	err = km.Open()
	if err != nil {
		l.Error().Println("open input driver:", err)
		return km, err
	}

	return km, nil
}
