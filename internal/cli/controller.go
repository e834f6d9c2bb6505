// Package cli drives an interactive exploration session: it asks for a
// city, month and weekday, prints the statistics report and offers raw
// trips page by page, then offers to start over.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"bikeshare-platform/internal/analytics"
	"bikeshare-platform/internal/presentation"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

const (
	notRecognised = "Your response could not be recognised."
	separator     = "----------------------------------------"
)

// Yes/no vocabularies, matched case-insensitively
var (
	PositiveAnswers = []string{"y", "yes", "yeah", "yep", "ok", "k", "okay", "alright"}
	NegativeAnswers = []string{"n", "no", "nah", "nope"}
)

// errInputClosed ends the session when the input stream runs out
var errInputClosed = errors.New("input closed")

// inputLine is one line read from the input, or the error that ended it
type inputLine struct {
	text string
	err  error
}

// Controller runs interactive sessions over a line-oriented reader and writer
type Controller struct {
	in       *bufio.Scanner
	lines    <-chan inputLine
	out      io.Writer
	datasets *services.DatasetService
	stats    *services.StatisticsService
	pageSize int
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewController creates a controller; pageSize below 1 falls back to the
// default page size
func NewController(
	in io.Reader,
	out io.Writer,
	datasets *services.DatasetService,
	stats *services.StatisticsService,
	pageSize int,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *Controller {
	if pageSize < 1 {
		pageSize = analytics.DefaultPageSize
	}
	return &Controller{
		in:       bufio.NewScanner(in),
		out:      out,
		datasets: datasets,
		stats:    stats,
		pageSize: pageSize,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// Run loops over sessions until the user declines a restart, input ends or
// ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	c.lines = c.readLines(ctx)
	c.println("Hello! Let's explore some US bikeshare data!")

	for ctx.Err() == nil {
		err := c.session(ctx)
		if stopped(ctx, err) {
			break
		}
		if err != nil {
			return err
		}

		again, err := c.askYesNo(ctx, "Would you like to look at the data with a new city/time filter?")
		if stopped(ctx, err) || (err == nil && !again) {
			break
		}
		if err != nil {
			return err
		}
	}

	c.println("\nProgram terminating... Goodbye!")
	return nil
}

// stopped reports whether err ends the loop without being a failure
func stopped(ctx context.Context, err error) bool {
	return errors.Is(err, errInputClosed) || (err != nil && ctx.Err() != nil)
}

// readLines feeds input lines to a channel so prompts can also wait on ctx.
// The final value carries the read error, or errInputClosed at end of input.
func (c *Controller) readLines(ctx context.Context) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		for {
			var line inputLine
			if c.in.Scan() {
				line.text = c.in.Text()
			} else if line.err = c.in.Err(); line.err != nil {
				line.err = fmt.Errorf("failed to read input: %w", line.err)
			} else {
				line.err = errInputClosed
			}

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
			if line.err != nil {
				return
			}
		}
	}()
	return lines
}

// session runs one filter selection, report and paging cycle
func (c *Controller) session(ctx context.Context) error {
	ctx = logging.WithSessionID(ctx, ulid.Make().String())

	cities := c.datasets.Cities()
	city, err := c.choose(ctx, "Would you like to look at data for "+listChoices(cities)+"?", cities)
	if err != nil {
		return err
	}

	month, err := c.choose(ctx, "Which month of the year would you like to look at (January, February..etc, or all)?",
		append([]string{analytics.All}, analytics.Months...))
	if err != nil {
		return err
	}

	day, err := c.choose(ctx, "Which day of the week would you like to look at (Monday, Tuesday...etc, or all)?",
		append([]string{analytics.All}, analytics.Weekdays...))
	if err != nil {
		return err
	}
	c.println(separator)

	criteria, err := analytics.ParseCriteria(month, day)
	if err != nil {
		return err
	}

	c.logger.Info(ctx, "[CLI_SESSION] Filter selected", logging.Fields{
		"city":   city,
		"filter": criteria.String(),
	})

	collection, err := c.datasets.Collection(ctx, city)
	if err != nil {
		c.logger.Error(ctx, "[CLI_LOAD_ERROR] Failed to load city dataset", logging.Fields{
			"city": city,
		}, err)
		c.printf("\nThe data for %s could not be loaded: %v\n", displayName(city), err)
		return nil
	}

	report, err := c.stats.Analyze(ctx, city, collection, criteria)
	if err != nil {
		return err
	}

	if report.Records.Len() == 0 {
		c.println("\nThere is no data for this selection.")
		c.println(separator)
		return nil
	}

	printSection(c, "Calculating The Most Frequent Times of Travel...", report.Time, presentation.TimeSection)
	printSection(c, "Calculating The Most Popular Stations and Trip...", report.Station, presentation.StationSection)
	printSection(c, "Calculating Trip Duration...", report.Duration, presentation.DurationSection)
	printSection(c, "Calculating User Stats...", report.User, presentation.UserSection)

	return c.browse(ctx, analytics.NewPager(report.Records, c.pageSize))
}

// browse offers pages of raw trips until the user declines or they run out
func (c *Controller) browse(ctx context.Context, pager *analytics.Pager) error {
	question := fmt.Sprintf("Would you like to look at %d rows of individual trip data?", pager.PageSize())

	for pager.HasNext() {
		yes, err := c.askYesNo(ctx, question)
		if err != nil || !yes {
			return err
		}

		c.print(presentation.PageText(pager.Next()))
		c.metrics.RecordPageServed("cli")
		question = fmt.Sprintf("Would you like to look at the next %d rows of individual trip data?", pager.PageSize())
	}

	c.println("\nThere is no more trip data for this selection.")
	return nil
}

func printSection[T any](c *Controller, title string, result services.SectionResult[T], render func(*T) []string) {
	c.println("\n" + title)
	if result.Err != nil {
		c.println("\nNo result: " + result.Err.Error())
	} else {
		for _, line := range render(result.Stats) {
			c.println(line)
		}
	}
	c.printf("\nThis took %.6f seconds.\n", result.Elapsed.Seconds())
	c.println(separator)
}

// choose asks question until the answer matches one of choices, ignoring case
func (c *Controller) choose(ctx context.Context, question string, choices []string) (string, error) {
	prompt := question
	for {
		answer, err := c.ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		if slices.Contains(choices, answer) {
			return answer, nil
		}
		prompt = notRecognised + "\n" + question
	}
}

// askYesNo asks question until the answer is in one of the yes/no vocabularies
func (c *Controller) askYesNo(ctx context.Context, question string) (bool, error) {
	prompt := question
	for {
		answer, err := c.ask(ctx, prompt)
		if err != nil {
			return false, err
		}
		switch {
		case slices.Contains(PositiveAnswers, answer):
			return true, nil
		case slices.Contains(NegativeAnswers, answer):
			return false, nil
		}
		prompt = notRecognised + "\n" + question + " (yes or no)"
	}
}

// ask prints a prompt and returns the next input line, trimmed and lower-cased
func (c *Controller) ask(ctx context.Context, prompt string) (string, error) {
	c.printf("\n%s\n", prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", errInputClosed
		}
		if line.err != nil {
			return "", line.err
		}
		return strings.ToLower(strings.TrimSpace(line.text)), nil
	}
}

func (c *Controller) print(s string) {
	fmt.Fprint(c.out, s)
}

func (c *Controller) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Controller) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// listChoices renders "A, B or C" with title-cased names
func listChoices(names []string) string {
	display := make([]string, len(names))
	for i, n := range names {
		display[i] = displayName(n)
	}
	if len(display) < 2 {
		return strings.Join(display, "")
	}
	return strings.Join(display[:len(display)-1], ", ") + " or " + display[len(display)-1]
}

// displayName title-cases each word of a lower-case city name
func displayName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
