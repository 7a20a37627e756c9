package cmd

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/ComedicChimera/olive"

	"mxc/common"
	"mxc/report"
)

// Execute runs the main `mxc` application.
func Execute() {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("mxc", "mxc compiles markup and script projects", true)
	cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false, []string{"silent", "error", "warning", "verbose"})
	traceArg := cli.AddSelectorArg("trace", "t", "the verbosity of internal tracing", false, []string{"0", "1", "2"})
	traceArg.SetDefaultValue("0")

	buildCmd := cli.AddSubcommand("build", "compile a project", true)
	buildCmd.AddPrimaryArg("project-path", "the path to the project directory", true)
	buildCmd.AddStringArg("outpath", "o", "the directory to write the compiled classes to", false)
	buildCmd.AddFlag("debug", "d", "compile the entry points with debug information")

	libCmd := cli.AddSubcommand("lib", "compile a project into a library archive", true)
	libCmd.AddPrimaryArg("project-path", "the path to the project directory", true)
	libCmd.AddStringArg("outpath", "o", "the path of the library archive", false)

	cli.AddSubcommand("version", "print the mxc version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.PrintErrorMessage("CLI Usage Error", err)
		return
	}

	if trace := result.Arguments["trace"].(string); trace != "0" {
		flag.Set("logtostderr", "true")
		flag.Set("v", trace)
	}

	loglevel := ""
	if ll, ok := result.Arguments["loglevel"]; ok {
		loglevel = ll.(string)
	}

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		execCompileCommand(subResult, loglevel, false)
	case "lib":
		execCompileCommand(subResult, loglevel, true)
	case "version":
		report.PrintInfoMessage("mxc Version", common.Version)
	}
}

// execCompileCommand executes the build and lib subcommands and handles all
// errors.
func execCompileCommand(result *olive.ArgParseResult, loglevel string, lib bool) {
	projectRelPath, _ := result.PrimaryArg()

	projectPath, err := filepath.Abs(projectRelPath)
	if err != nil {
		report.PrintErrorMessage("Path Error", err)
		return
	}

	outpath := ""
	if outArgVal, ok := result.Arguments["outpath"]; ok {
		outpath = outArgVal.(string)
	}

	b, err := newBuilder(projectPath, loglevel)
	if err != nil {
		report.PrintErrorMessage("Project Load Error", err)
		return
	}

	if !lib && result.HasFlag("debug") {
		b.proj.Debug = true
	}

	if lib {
		err = b.buildLibrary(outpath)
	} else {
		err = b.buildProject(outpath)
	}

	if err != nil {
		report.ReportFatal("%s", err)
	}

	if !b.rep.ShouldProceed() {
		os.Exit(1)
	}
}
