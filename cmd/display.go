package cmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jchavanton/sign-xcorr/internal/latency"
)

// ANSI escape sequences used by the human-readable reports
var (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
)

var titleCaser = cases.Title(language.English)

func disableColors() {
	for _, c := range []*string{&ColorReset, &ColorBold, &ColorRed, &ColorGreen, &ColorYellow,
		&ColorBlue, &ColorPurple, &ColorCyan, &ColorWhite} {
		*c = ""
	}
}

// PerformanceTimer records named durations for a command run
type PerformanceTimer struct {
	mu      sync.Mutex
	start   time.Time
	started map[string]time.Time
	events  map[string]time.Duration
	order   []string
}

// NewPerformanceTimer creates a timer whose total starts now
func NewPerformanceTimer() *PerformanceTimer {
	return &PerformanceTimer{
		start:   time.Now(),
		started: make(map[string]time.Time),
		events:  make(map[string]time.Duration),
	}
}

// StartEvent marks the beginning of a named event
func (t *PerformanceTimer) StartEvent(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[name] = time.Now()
}

// EndEvent records the duration of a started event
func (t *PerformanceTimer) EndEvent(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	begin, ok := t.started[name]
	if !ok {
		return 0
	}
	d := time.Since(begin)
	if _, seen := t.events[name]; !seen {
		t.order = append(t.order, name)
	}
	t.events[name] = d
	delete(t.started, name)
	return d
}

// GetDuration returns the recorded duration of an event
func (t *PerformanceTimer) GetDuration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events[name]
}

// GetTotalDuration returns the time since the timer was created
func (t *PerformanceTimer) GetTotalDuration() time.Duration {
	return time.Since(t.start)
}

// Events returns event names in completion order
func (t *PerformanceTimer) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

func printHeader(title, subject string) {
	fmt.Printf("%s%s%s%s: %s%s%s\n", ColorBold, ColorBlue, title, ColorReset, ColorCyan, subject, ColorReset)
	fmt.Printf("%s%s%s\n\n", ColorBlue, strings.Repeat("═", 80), ColorReset)
}

func printSection(title string) {
	fmt.Printf("\n%s%s%s\n", ColorBold, title, ColorReset)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printSubsection(title string) {
	fmt.Printf("\n  %s\n", title)
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

func printSuccess(format string, args ...any) {
	fmt.Printf("   %s✓%s %s\n", ColorGreen, ColorReset, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("   %s⚠%s %s\n", ColorYellow, ColorReset, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Printf("   %s✗%s %s\n", ColorRed, ColorReset, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("   %s•%s %s\n", ColorCyan, ColorReset, fmt.Sprintf(format, args...))
}

// statusLabel renders a comparison status for humans
func statusLabel(status latency.Status) string {
	label := titleCaser.String(string(status))
	switch status {
	case latency.StatusOK:
		return ColorGreen + strings.ToUpper(label) + ColorReset
	case latency.StatusUndefined, latency.StatusCancelled:
		return ColorYellow + label + ColorReset
	default:
		return ColorRed + label + ColorReset
	}
}

// printComparison prints the human-readable report of one comparison
func printComparison(c *latency.Comparison, precision int) {
	printSection("INPUTS")
	printKeyValue("Degraded", c.DegradedPath)
	printKeyValue("Reference", c.ReferencePath)
	printKeyValue("Window Length", fmt.Sprintf("%d samples", c.WindowLength))
	printKeyValue("Sample Rate", fmt.Sprintf("%d Hz", c.SampleRate))

	printSection("CORRELATION")
	printKeyValue("Status", statusLabel(c.Status))
	if c.Status == latency.StatusOK || c.Status == latency.StatusUndefined {
		printKeyValue("Cross Peak", fmt.Sprintf("%.*g", precision+2, c.CrossPeak))
		printKeyValue("Auto Peak (degraded)", fmt.Sprintf("%.*g", precision+2, c.AutoPeakDegraded))
		printKeyValue("Auto Peak (reference)", fmt.Sprintf("%.*g", precision+2, c.AutoPeakReference))
		printKeyValue("Lag", fmt.Sprintf("%d samples", c.LagSamples))
		printKeyValue("Lag", fmt.Sprintf("%d ms", c.LagMs))
		printKeyValue("Delay", fmt.Sprintf("%d samples (%.*f ms)", c.DelaySamples, precision, c.DelayMs))
	}
	if c.Status == latency.StatusOK {
		printKeyValue("Coefficient", fmt.Sprintf("%.*f", precision, c.Coefficient))
	}

	if len(c.Diagnostics) > 0 || c.Error != nil {
		printSection("DIAGNOSTICS")
		for _, d := range c.Diagnostics {
			printWarning("%s", d)
		}
		if c.Error != nil {
			printError("%v", c.Error)
		}
	}
}

// printStatusCounts prints non-zero status counts in a stable order
func printStatusCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k, n := range counts {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		printKeyValue(titleCaser.String(k), fmt.Sprintf("%d", counts[k]))
	}
}
