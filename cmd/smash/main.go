package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"smash/internal/config"
	"smash/internal/execute"
	"smash/internal/jobs"
	"smash/internal/logging"
	"smash/internal/shell"
)

var (
	cfgPath string
	command string
	dump    bool

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "smash",
	Short: "A small Unix shell",
	Long: `smash reads command lines, runs each one as a pipeline of processes
connected by pipes and keeps track of the ones sent to the background.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		exitCode, err = run(cmd.Flags().Changed("command"))
		return err
	},
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "smash")
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", defaultConfigDir(), "directory holding config.yaml")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run this line and exit")
	rootCmd.Flags().BoolVar(&dump, "dump", false, "print each parsed pipeline to stderr")
}

func run(oneShot bool) (int, error) {
	cfg, err := config.Load(afero.NewOsFs(), cfgPath)
	if err != nil {
		return 0, err
	}

	home, _ := os.UserHomeDir()
	log, closer := logging.New(logging.Config{
		Filename:   config.ExpandHome(cfg.LogFile, home),
		Level:      cfg.LogLevel,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: 3,
	})
	defer closer.Close()

	table := jobs.NewTable(os.Stdout, jobs.WithLogger(log))
	exec := execute.New(os.Stdin, os.Stdout, os.Stderr, table, log)

	if oneShot {
		sh := shell.New(cfg, exec, nil, shell.WithDump(dump), shell.WithLogger(log))
		code, _ := sh.RunLine(command)
		return code, nil
	}

	reader, err := shell.NewReader(os.Stdin, config.ExpandHome(cfg.HistoryFile, home), cfg.HistoryLimit)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	log.Info("shell started", "config", cfgPath)
	return shell.New(cfg, exec, reader, shell.WithDump(dump), shell.WithLogger(log)).Run(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
