// luab runs Lua scripts through luabridge, or starts an interactive REPL.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feather-lang/luabridge"
)

type options struct {
	configPath  string
	logLevel    string
	errorBuffer int
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:   "luab",
		Short: "Run Lua code through luabridge",
		Long: `luab runs Lua scripts through luabridge.

With no subcommand it starts a REPL when stdin is a terminal and
otherwise runs stdin as a script.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal(os.Stdin) {
				return runREPL(opts)
			}
			return runStdin(opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a TOML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().IntVar(&opts.errorBuffer, "error-buffer", 0, "error message buffer size in bytes")

	root.AddCommand(&cobra.Command{
		Use:   "run FILE...",
		Short: "Run Lua scripts in one interpreter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(opts, args)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(opts)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newState builds a State from the configuration file and flags.
func newState(opts options) (*luabridge.State, luabridge.Config, error) {
	cfg := luabridge.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = luabridge.LoadConfig(opts.configPath)
		if err != nil {
			return nil, cfg, err
		}
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.errorBuffer > 0 {
		cfg.ErrorBufferSize = opts.errorBuffer
	}
	if cfg.LogLevel != "" {
		log, err := luabridge.NewLogger(cfg.LogLevel)
		if err != nil {
			return nil, cfg, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		luabridge.SetLogger(log)
		cfg.Logger = log
	}
	s, err := luabridge.NewFromConfig(cfg)
	if err != nil {
		return nil, cfg, err
	}
	return s, s.Config(), nil
}

func runFiles(opts options, paths []string) error {
	s, cfg, err := newState(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	buf := luabridge.NewErrorBuffer(cfg.ErrorBufferSize)
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := runChunk(s, src, "@"+path, buf); err != nil {
			return err
		}
	}
	return nil
}

func runStdin(opts options) error {
	s, cfg, err := newState(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("error reading script: %w", err)
	}
	return runChunk(s, src, "=stdin", luabridge.NewErrorBuffer(cfg.ErrorBufferSize))
}

func runChunk(s *luabridge.State, src []byte, name string, buf *luabridge.ErrorBuffer) error {
	st := s.DoBuffer(src, name, buf)
	if st == luabridge.StatusOK {
		return nil
	}
	s.Log().Debug("chunk failed", zap.String("chunk", name), zap.Stringer("status", st))
	return fmt.Errorf("%s", buf.String())
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
