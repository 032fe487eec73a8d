package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vfdiscovery/pkg/appconfig"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Read or update the persisted configuration",
		Long: `Read or update the persisted configuration.

Without arguments every key is printed. With a key its value is printed,
and with a key and a value the value is stored. Valid keys are
cacheExpiry, lastInvalidation and upstreamReleaseTag.`,
		Example: `  vfdiscovery config
  vfdiscovery config cacheExpiry 1D 6h
  vfdiscovery config upstreamReleaseTag null
  vfdiscovery config --reset`,
		ValidArgs: keyNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openAppConfig(loggerFromContext(cmd.Context()))
			if err != nil {
				return err
			}

			switch {
			case reset:
				if err := svc.Reset(); err != nil {
					return err
				}
				printSuccess(c.stdout, "Configuration reset")
				printDetail(c.stdout, "File: %s", svc.Paths().ConfigFile)
				return nil
			case len(args) == 0:
				printInfo(c.stdout, "Configuration in %s", svc.Paths().ConfigFile)
				for _, key := range appconfig.Keys {
					value, err := svc.Get(key)
					if err != nil {
						return err
					}
					printKeyValue(c.stdout, string(key), value)
				}
				return nil
			case len(args) == 1:
				value, err := svc.Get(appconfig.Key(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintln(c.stdout, value)
				return nil
			}

			key := appconfig.Key(args[0])
			value := strings.Join(args[1:], " ")
			if err := svc.Update(key, value, true); err != nil {
				return err
			}
			printSuccess(c.stdout, "Set %s to %s", key, StyleValue.Render(value))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reset, "reset", "r", false, "restore the default configuration")
	return cmd
}

// openAppConfig prepares the application directory and loads its configuration.
func openAppConfig(logger *log.Logger) (*appconfig.Service, error) {
	paths, err := appconfig.DefaultPaths()
	if err != nil {
		return nil, err
	}
	svc := appconfig.NewService(paths, logger)
	if err := svc.Setup(false); err != nil {
		return nil, err
	}
	if err := svc.Load(); err != nil {
		return nil, err
	}
	return svc, nil
}

func keyNames() []string {
	names := make([]string, len(appconfig.Keys))
	for i, k := range appconfig.Keys {
		names[i] = string(k)
	}
	return names
}
