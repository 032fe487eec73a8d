package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the upstream component cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached upstream component",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openAppConfig(loggerFromContext(cmd.Context()))
			if err != nil {
				return err
			}
			if err := svc.DeleteCachedComponents(); err != nil {
				return err
			}
			printSuccess(c.stdout, "Cache cleared")
			printDetail(c.stdout, "Directory: %s", svc.Paths().CacheDir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openAppConfig(loggerFromContext(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, svc.Paths().CacheFile)
			return nil
		},
	}
}
