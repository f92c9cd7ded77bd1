package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"intohear/internal/models"
)

// menu is the interactive loop shown when intohear starts on a terminal
// without arguments. Processing errors are printed and the loop continues.
type menu struct {
	in      *bufio.Scanner
	out     io.Writer
	target  string
	model   models.Selection
	process func(target string, model models.Selection) error
}

func runMenu(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	m := &menu{
		in:    bufio.NewScanner(cmd.InOrStdin()),
		out:   cmd.OutOrStdout(),
		model: models.Parse(cfg.Transcription.Model),
		process: func(target string, model models.Selection) error {
			return transcribeOne(cmd, ctx, target, runOptions{Model: model.String()}, outputTarget{Path: defaultOutputFile})
		},
	}
	return m.loop()
}

func (m *menu) loop() error {
	for {
		m.render()
		choice, ok := m.prompt("Select an option (1-5): ")
		if !ok {
			fmt.Fprintln(m.out)
			return nil
		}
		switch choice {
		case "1":
			m.chooseTarget()
		case "2":
			m.chooseModel()
		case "3":
			if err := m.start(); err != nil {
				return err
			}
		case "4":
			fmt.Fprintln(m.out, "Option 1 sets a URL or a local audio file path; a local path must exist.")
			fmt.Fprintf(m.out, "Option 2 changes the model. Option 3 starts processing and saves %s in the current directory.\n", defaultOutputFile)
		case "5":
			fmt.Fprintln(m.out, "Goodbye.")
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid option. Enter a number between 1 and 5.")
		}
	}
}

func (m *menu) render() {
	target := m.target
	if target == "" {
		target = "(not set)"
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "=== IntoHear ===")
	fmt.Fprintf(m.out, "Current target: %s\n", target)
	fmt.Fprintf(m.out, "Current model: %s\n", modelLabel(m.model))
	fmt.Fprintln(m.out, "1) Enter a URL or local audio file path")
	fmt.Fprintln(m.out, "2) Choose model (tiny, small, base, medium, large)")
	fmt.Fprintln(m.out, "3) Start processing")
	fmt.Fprintln(m.out, "4) Help")
	fmt.Fprintln(m.out, "5) Quit")
}

func (m *menu) chooseTarget() {
	input, _ := m.prompt("Enter URL or local file path: ")
	if input == "" {
		fmt.Fprintln(m.out, "Empty input; target not changed.")
		return
	}
	m.target = input
	fmt.Fprintf(m.out, "Target set to: %s\n", m.target)
}

func (m *menu) chooseModel() {
	fmt.Fprintln(m.out, "Choose model: 1) tiny  2) small  3) base  4) medium  5) large")
	input, _ := m.prompt("Enter number or name: ")
	if input == "" {
		fmt.Fprintln(m.out, "No change to model.")
		return
	}
	m.model = models.ParseMenuChoice(input)
	fmt.Fprintf(m.out, "Model set to: %s\n", modelLabel(m.model))
}

// start runs the pipeline for the current target. Only cancellation ends
// the loop; other failures are reported and the menu is shown again.
func (m *menu) start() error {
	if m.target == "" {
		fmt.Fprintln(m.out, "Please set a target first (option 1).")
		return nil
	}
	fmt.Fprintf(m.out, "Processing %s with model %s...\n", m.target, modelLabel(m.model))
	err := m.process(m.target, m.model)
	if err == nil {
		return nil
	}
	if isCanceled(err) {
		return err
	}
	fmt.Fprintf(m.out, "Error: %v\n", err)
	return nil
}

func (m *menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func modelLabel(sel models.Selection) string {
	if sel.Aliased() {
		return fmt.Sprintf("%s (uses %s)", sel.String(), sel.Artifact().String())
	}
	return sel.String()
}
