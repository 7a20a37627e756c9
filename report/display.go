package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mxc/common"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = SuccessColorFG
	InfoStyleBG    = SuccessStyleBG
)

// PrintErrorMessage prints a standard Go error to the console.
func PrintErrorMessage(tag string, err error) {
	ErrorStyleBG.Print(tag)
	ErrorColorFG.Println(" " + err.Error())
}

// PrintInfoMessage prints an informational message to the user.
func PrintInfoMessage(tag, msg string) {
	InfoStyleBG.Print(tag)
	InfoColorFG.Println(" " + msg)
}

// -----------------------------------------------------------------------------

func (cm *CompileMessage) display() {
	cm.displayBanner()
	fmt.Println(cm.Message)

	if cm.Position != nil {
		cm.displayCodeSelection()
	}
}

// displayBanner displays the banner on top of all compilation messages.
func (cm *CompileMessage) displayBanner() {
	fmt.Print("\n\n-- ")
	kindStr := KindName(cm.Kind)
	kindLen := len(kindStr)
	if cm.IsError {
		ErrorStyleBG.Print(kindStr + " Error")
		kindLen += 6
	} else {
		WarnStyleBG.Print(kindStr + " Warning")
		kindLen += 8
	}

	fmt.Print(" ")

	fileName := filepath.Base(cm.Path)
	bannerLen := pterm.GetTerminalWidth() / 2
	if bannerLen > 50 {
		bannerLen = 50
	}

	dashCount := bannerLen - len(fileName) - kindLen - 1
	if dashCount < 3 {
		dashCount = 3
	}

	fmt.Print(strings.Repeat("-", dashCount) + " ")
	if cm.Position == nil {
		InfoColorFG.Println(fileName)
	} else {
		InfoColorFG.Println(fmt.Sprintf("%s:%d", fileName, cm.Position.StartLn))
	}
}

// displayCodeSelection displays the erroneous code (with line numbers) and
// highlights the appropriate sections.  Sources which are not backed by a file
// on disk (generated or archived sources) simply have no selection.
func (cm *CompileMessage) displayCodeSelection() {
	f, err := os.Open(cm.Path)
	if err != nil {
		return
	}
	defer f.Close()

	pos := cm.Position
	if pos.EndLn < pos.StartLn {
		return
	}

	sc := bufio.NewScanner(f)
	lines := make([]string, pos.EndLn-pos.StartLn+1)
	for lineNumber := 1; sc.Scan(); lineNumber++ {
		if lineNumber >= pos.StartLn && lineNumber <= pos.EndLn {
			lines[lineNumber-pos.StartLn] = strings.ReplaceAll(sc.Text(), "\t", "    ")
		}
	}

	// calculate whitespace to trim
	minWhitespace := -1
	for _, line := range lines {
		leading := len(line) - len(strings.TrimLeft(line, " "))
		if minWhitespace == -1 || leading < minWhitespace {
			minWhitespace = leading
		}
	}

	maxLineNumberWidth := len(strconv.Itoa(pos.EndLn)) + 1
	lineNumberFmtStr := "%-" + strconv.Itoa(maxLineNumberWidth) + "v"

	fmt.Println()
	for i, line := range lines {
		InfoColorFG.Print(fmt.Sprintf(lineNumberFmtStr, i+pos.StartLn))
		fmt.Print("|  ")
		fmt.Println(line[minWhitespace:])

		fmt.Print(strings.Repeat(" ", maxLineNumberWidth), "|  ")

		start := 0
		if i == 0 {
			start = pos.StartCol - minWhitespace
		}

		end := len(line) - minWhitespace
		if i == len(lines)-1 && pos.EndCol-minWhitespace < end {
			end = pos.EndCol - minWhitespace
		}

		if start < 0 {
			start = 0
		}

		if end <= start {
			end = start + 1
		}

		fmt.Print(strings.Repeat(" ", start))
		ErrorColorFG.Println(strings.Repeat("^", end-start))
	}

	fmt.Println()
}

const fatalErrorPostlude = `
This is likely a bug in the compiler.`

func displayICE(msg string) {
	fmt.Print("\n\n")
	ErrorStyleBG.Print("Internal Compiler Error ")
	ErrorColorFG.Println(msg)
	InfoColorFG.Println(fatalErrorPostlude)
}

func displayFatalError(msg string) {
	fmt.Print("\n\n")
	ErrorStyleBG.Print("Fatal Error ")
	ErrorColorFG.Println(msg)
}

// -----------------------------------------------------------------------------

// displayCompileHeader displays the compiler information before compilation.
func displayCompileHeader(project string, incremental bool) {
	fmt.Print("mxc ")
	InfoColorFG.Print("v" + common.Version)
	fmt.Print(" -- project: ")
	InfoColorFG.Println(project)

	if incremental {
		fmt.Println("compiling incrementally")
	}
}

// phaseDisplay is the state of the running phase spinner.
type phaseDisplay struct {
	spinner   *pterm.SpinnerPrinter
	name      string
	startTime time.Time
}

const maxPhaseLength = len("Postprocessing")

// BeginPhase displays the beginning of a compilation phase.  Only verbose
// reporters display phases.
func (r *Reporter) BeginPhase(phase string) {
	r.m.Lock()
	defer r.m.Unlock()

	if r.LogLevel != LogLevelVerbose {
		return
	}

	r.endPhase(true)

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(InfoColorFG))
	spinner.SuccessPrinter = &pterm.PrefixPrinter{
		MessageStyle: pterm.NewStyle(pterm.FgDefault),
		Prefix: pterm.Prefix{
			Style: SuccessStyleBG,
			Text:  "Done",
		},
	}

	spinner.FailPrinter = &pterm.PrefixPrinter{
		MessageStyle: pterm.NewStyle(pterm.FgDefault),
		Prefix: pterm.Prefix{
			Style: ErrorStyleBG,
			Text:  "Fail",
		},
	}

	started, err := spinner.Start(phase + "..." + phasePadding(phase))
	if err != nil {
		return
	}

	r.phase = &phaseDisplay{spinner: started, name: phase, startTime: time.Now()}
}

// EndPhase displays the end of the current compilation phase.
func (r *Reporter) EndPhase(success bool) {
	r.m.Lock()
	defer r.m.Unlock()

	r.endPhase(success)
}

func (r *Reporter) endPhase(success bool) {
	if r.phase == nil {
		return
	}

	if success {
		r.phase.spinner.Success(
			r.phase.name+phasePadding(r.phase.name),
			fmt.Sprintf("(%.3fs)", time.Since(r.phase.startTime).Seconds()),
		)
	} else {
		r.phase.spinner.Fail(r.phase.name + phasePadding(r.phase.name))
	}

	r.phase = nil
}

func phasePadding(phase string) string {
	if len(phase) >= maxPhaseLength {
		return "  "
	}

	return strings.Repeat(" ", maxPhaseLength-len(phase)+2)
}

// displayCompilationFinished displays a compilation finished message.
func displayCompilationFinished(success bool, errorCount, warningCount int, outputPath string) {
	fmt.Print("\n")

	if success {
		SuccessColorFG.Print("All done! ")
	} else {
		ErrorColorFG.Print("Oh no! ")
	}

	fmt.Print("(")

	switch errorCount {
	case 0:
		SuccessColorFG.Print(0)
		fmt.Print(" errors, ")
	case 1:
		ErrorColorFG.Print(1)
		fmt.Print(" error, ")
	default:
		ErrorColorFG.Print(errorCount)
		fmt.Print(" errors, ")
	}

	switch warningCount {
	case 0:
		SuccessColorFG.Print(0)
		fmt.Println(" warnings)")
	case 1:
		WarnColorFG.Print(1)
		fmt.Println(" warning)")
	default:
		WarnColorFG.Print(warningCount)
		fmt.Println(" warnings)")
	}

	if success && outputPath != "" {
		fmt.Print("output written to ")
		InfoColorFG.Println(outputPath)
	}
}
