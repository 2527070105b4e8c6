package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/grocer/internal/config"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. When it delivers, the running command's context is
// canceled.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("grocer", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagDataDir := globalFlags.String("data-dir", "", "Store lists in `dir`")
	flagOwner := globalFlags.String("owner", "", "Act on the lists of `name`")
	flagServiceURL := globalFlags.String("service-url", "", "Organizing service `url` (empty disables it)")

	if len(args) == 0 {
		args = []string{"grocer"}
	}

	err := globalFlags.Parse(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globalFlags, nil)

		return 1
	}

	rest := globalFlags.Args()

	input := config.Input{
		WorkDirOverride: *flagCwd,
		ConfigPath:      *flagConfig,
		Env:             env,
	}

	if globalFlags.Changed("data-dir") {
		input.DataDir = flagDataDir
	}

	if globalFlags.Changed("owner") {
		input.Owner = flagOwner
	}

	if globalFlags.Changed("service-url") {
		input.ServiceURL = flagServiceURL
	}

	cfg, err := config.Load(input)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	a := newApp(&cfg, env, errOut)
	defer a.close()

	commands := allCommands(a)

	if *flagHelp || len(rest) == 0 {
		printUsage(out, globalFlags, commands)

		return 0
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == rest[0] {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				a.log.Debug("interrupted")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(in, out, errOut)
	o.SetColor(env["NO_COLOR"] == "" && isTerminal(out))

	return cmd.Run(ctx, o, rest[1:])
}

func allCommands(a *app) []*Command {
	return []*Command{
		SayCmd(a),
		ListenCmd(a),
		AddCmd(a),
		RecipeCmd(a),
		ShowCmd(a),
		NewCmd(a),
		CheckCmd(a),
		RmCmd(a),
		RenameItemCmd(a),
		CompleteCmd(a),
		ArchiveCmd(a),
		DeleteCmd(a),
		RenameCmd(a),
		HistoryCmd(a),
		StatsCmd(a),
		ExportCmd(a),
		HealthCmd(a),
		WatchCmd(a),
		PrintConfigCmd(a.cfg),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globalFlags *flag.FlagSet, commands []*Command) {
	fprintln(w, `grocer - voice grocery lists

Usage: grocer [options] <command> [args]

Options:`)

	var buf strings.Builder
	globalFlags.SetOutput(&buf)
	globalFlags.PrintDefaults()
	globalFlags.SetOutput(&strings.Builder{})
	_, _ = fmt.Fprint(w, buf.String())

	if len(commands) == 0 {
		return
	}

	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}
