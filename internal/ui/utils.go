package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

// ErrQuit is returned by the readers when the input is exhausted.
var ErrQuit = errors.New("input closed")

// Console prints colored messages and reads trimmed answers.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Banner prints the application name in large letters.
func (c *Console) Banner() {
	cyan := color.New(color.FgCyan)
	cyan.Fprintln(c.out, figure.NewFigure("Agro", "isometric1", true).String())
	cyan.Fprintln(c.out, figure.NewFigure("NDVI", "isometric1", true).String())
}

func (c *Console) PrintWarning(message string) {
	fmt.Fprintf(c.out, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(c.out, "%s%s%s\n", ColorYellow, message, ColorReset)
}

func (c *Console) PrintError(message string) {
	fmt.Fprintf(c.out, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

func (c *Console) PrintSuccess(message string) {
	fmt.Fprintf(c.out, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

func (c *Console) PrintInfo(message string) {
	fmt.Fprintf(c.out, "%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads one line. ErrQuit is returned at end of input when the line is empty.
func (c *Console) ReadString(prompt string) (string, error) {
	c.PrintInfo(prompt)
	input, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && input != "" {
			return strings.TrimSpace(input), nil
		}
		return "", ErrQuit
	}
	return strings.TrimSpace(input), nil
}

func (c *Console) ReadInt(prompt string, min, max int) (int, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadDate accepts YYYY-MM-DD or "today".
func (c *Console) ReadDate(prompt string) (time.Time, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return time.Time{}, err
	}
	if input == "today" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(imagery.DateLayout, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	return date, nil
}

// Choose lists options and returns the selected one.
func (c *Console) Choose(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to choose from")
	}
	fmt.Fprintf(c.out, "%s\n%s:%s\n", ColorGreen, title, ColorReset)
	for i, opt := range options {
		fmt.Fprintf(c.out, "%s%d. %s%s\n", ColorGreen, i+1, opt, ColorReset)
	}
	choice, err := c.ReadInt("Enter a number: ", 1, len(options))
	if err != nil {
		return "", err
	}
	return options[choice-1], nil
}

var regionExtensions = map[string]bool{".shp": true, ".geojson": true, ".json": true, ".gpkg": true}

// ListRegions returns the vector files in dir, sorted by name.
func ListRegions(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading regions folder: %w", err)
	}
	var out []string
	for _, f := range files {
		if f.IsDir() || !regionExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		out = append(out, filepath.Join(dir, f.Name()))
	}
	sort.Strings(out)
	return out, nil
}
