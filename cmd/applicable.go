package cmd

import (
	"fmt"
	"strconv"

	"github.com/pathmessages/pathmessages/config"
	"github.com/pathmessages/pathmessages/version"
	"github.com/spf13/cobra"
)

func newApplicableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "applicable",
		Short: "print whether a rule file exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// only the rule file location matters here; other settings may
			// be invalid without affecting the answer
			flag, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			path := config.ResolveConfigPath(flag)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(fileExists(path)))
			return err
		},
	}
}

func newNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name",
		Short: "print the tool name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Name)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the tool version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return err
		},
	}
}
