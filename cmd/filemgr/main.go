// cmd/filemgr/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"filemgr/internal/config"
	"filemgr/internal/dispatch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// errReported marks failures that were already printed to the operator.
var errReported = errors.New("operation failed")

var (
	configPath string
	showDiff   bool
)

var rootCmd = &cobra.Command{
	Use:   "filemgr",
	Short: "filemgr edits text files line by line and keeps a changelog of every action",
	Long: `filemgr creates, copies, deletes and reads text files in the current directory
and edits them by line number. Every successful action is recorded in
changelog/<file>.changelog together with the file's line count afterwards.

Run without a command to start the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell()
	},
}

// withApp opens the application for one command and closes it afterwards.
func withApp(fn func(a *app) error) error {
	return withAppOptions(appOptions{configPath: configPath, images: showDiff}, fn)
}

func withAppOptions(opts appOptions, fn func(a *app) error) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// runOp runs a single operation as a command.
func runOp(op dispatch.Op) error {
	return withApp(func(a *app) error { return a.run(op) })
}

func runShell() error {
	return withApp(func(a *app) error {
		return newShell(a.dispatcher, a.printer, os.Stdin, stdinIsTerminal()).run()
	})
}

func parseLine(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid line number %q", arg)
	}
	return n, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "path to the JSON config file")

	var shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive numbered menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell()
		},
	}

	var createCmd = &cobra.Command{
		Use:   "create <file>",
		Short: "Create a new empty file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.Create{Name: args[0]})
		},
	}

	var catCmd = &cobra.Command{
		Use:   "cat <file>",
		Short: "Display the contents of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.ReadFile{Name: args[0]})
		},
	}

	var copyCmd = &cobra.Command{
		Use:   "copy <source> <new-file>",
		Short: "Copy a file to a new file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.Copy{Source: args[0], Dest: args[1]})
		},
	}

	var rmCmd = &cobra.Command{
		Use:   "rm <file>",
		Short: "Delete a file and its changelog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.Delete{Name: args[0]})
		},
	}

	var appendCmd = &cobra.Command{
		Use:   "append <file> <content>",
		Short: "Append a line of content to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.Append{Name: args[0], Content: args[1]})
		},
	}

	var deleteLineCmd = &cobra.Command{
		Use:   "delete-line <file> <line>",
		Short: "Delete the line at a line number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseLine(args[1])
			if err != nil {
				return err
			}
			return runOp(dispatch.DeleteLine{Name: args[0], Line: n})
		},
	}
	deleteLineCmd.Flags().BoolVar(&showDiff, "diff", false, "show the change as a diff")

	var insertLineCmd = &cobra.Command{
		Use:   "insert-line <file> <line> <content>",
		Short: "Insert a line of content at a line number",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseLine(args[1])
			if err != nil {
				return err
			}
			return runOp(dispatch.InsertLine{Name: args[0], Line: n, Content: args[2]})
		},
	}
	insertLineCmd.Flags().BoolVar(&showDiff, "diff", false, "show the change as a diff")

	var showLineCmd = &cobra.Command{
		Use:   "show-line <file> <line>",
		Short: "Display the line at a line number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseLine(args[1])
			if err != nil {
				return err
			}
			return runOp(dispatch.ShowLine{Name: args[0], Line: n})
		},
	}

	var countCmd = &cobra.Command{
		Use:   "count <file>",
		Short: "Show the number of lines in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.CountLines{Name: args[0]})
		},
	}

	var lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List the files in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.ListDir{})
		},
	}

	var changelogCmd = &cobra.Command{
		Use:   "changelog",
		Short: "Inspect or reset a file's changelog",
	}

	var changelogShowCmd = &cobra.Command{
		Use:   "show <file>",
		Short: "Show the changelog for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.ShowChangelog{Name: args[0]})
		},
	}

	var changelogResetCmd = &cobra.Command{
		Use:   "reset <file>",
		Short: "Reset the changelog for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.ResetChangelog{Name: args[0]})
		},
	}

	var changelogFollowCmd = &cobra.Command{
		Use:   "follow <file>",
		Short: "Print a file's changelog entries as they are written",
		Long:  `Prints the existing entries, then waits for new ones until interrupted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return withAppOptions(appOptions{configPath: configPath, noSafe: true}, func(a *app) error {
				return a.follow(ctx, args[0])
			})
		},
	}
	changelogCmd.AddCommand(changelogShowCmd, changelogResetCmd, changelogFollowCmd)

	var backupsCmd = &cobra.Command{
		Use:   "backups",
		Short: "List originals preserved by rewrites that could not be completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.ListBackups{})
		},
	}

	var recoverCmd = &cobra.Command{
		Use:   "recover <backup-id> <new-file>",
		Short: "Write a preserved original to a new file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(dispatch.Recover{ID: args[0], Dest: args[1]})
		},
	}

	rootCmd.AddCommand(
		shellCmd,
		createCmd,
		catCmd,
		copyCmd,
		rmCmd,
		appendCmd,
		deleteLineCmd,
		insertLineCmd,
		showLineCmd,
		countCmd,
		lsCmd,
		changelogCmd,
		backupsCmd,
		recoverCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			color.New(color.FgRed).Fprintf(os.Stderr, "[Error] %v\n", err)
		}
		os.Exit(1)
	}
}
