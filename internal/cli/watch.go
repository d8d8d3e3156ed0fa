package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lodestar-viz/lodestar/pkg/graph"
	"github.com/lodestar-viz/lodestar/pkg/layout"
	"github.com/lodestar-viz/lodestar/pkg/pipeline"
	"github.com/lodestar-viz/lodestar/pkg/sim"
)

// watchSampleInterval is how often the monitor samples the simulation.
// Slower than the step cadence; the monitor shows progress, not every frame.
const watchSampleInterval = 100 * time.Millisecond

// watchCommand creates the watch command: run the simulation at the driver
// cadence and monitor it live in the terminal. Space pauses and resumes, q
// quits.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		dof       int
		algorithm string
		tuning    string
	)

	cmd := &cobra.Command{
		Use:   "watch [graph.json]",
		Short: "Watch a live simulation in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.ReadGraphFile(args[0])
			if err != nil {
				return err
			}
			g.SetLogger(c.Logger)

			layoutOpts := layout.Options{DOF: dof, Logger: c.Logger}
			if tuning != "" {
				if layoutOpts.Tuning, err = layout.LoadTuning(tuning); err != nil {
					return err
				}
			}
			if algorithm == "" {
				algorithm = pipeline.DefaultAlgorithm
			}
			l, err := layout.New(algorithm, g, layoutOpts)
			if err != nil {
				return err
			}
			g.SetLayout(l)
			if err := g.StartLayout(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			driver := sim.NewDriver(g, sim.WithLogger(c.Logger))
			go func() {
				if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					c.Logger.Error("driver stopped", "err", err)
				}
			}()

			model := newWatchModel(g, l, algorithm, args[0])
			_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().IntVar(&dof, "dof", pipeline.DefaultDOF, "spatial degrees of freedom: 2 or 3")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "layout algorithm")
	cmd.Flags().StringVar(&tuning, "tuning", "", "TOML file with simulation constants")

	return cmd
}

// watchTickMsg requests the next sample.
type watchTickMsg time.Time

// watchModel is the bubbletea model for the live simulation monitor.
type watchModel struct {
	g         *graph.Graph
	l         layout.Layout
	algorithm string
	input     string

	snap     layout.Snapshot
	prev     []float64 // positions at the previous sample
	maxShift float64   // largest per-node displacement between samples
	extent   []float64 // bounding box span per axis
}

func newWatchModel(g *graph.Graph, l layout.Layout, algorithm, input string) watchModel {
	return watchModel{g: g, l: l, algorithm: algorithm, input: input}
}

func watchTick() tea.Cmd {
	return tea.Tick(watchSampleInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return watchTick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			if m.g.LayoutRunning() {
				m.g.PauseLayout()
			} else if err := m.g.StartLayout(); err != nil {
				return m, tea.Quit
			}
		}
	case watchTickMsg:
		m.sample()
		return m, watchTick()
	}
	return m, nil
}

// sample copies the current step's buffers and derives display stats. The
// graph lock excludes the driver for the duration of the copy.
func (m *watchModel) sample() {
	ids := m.g.NodeIDs()
	m.g.WithLock(func() {
		m.snap = layout.Capture(m.algorithm, m.l, ids)
	})

	dof := m.snap.DOF
	if dof == 0 || len(m.snap.Positions) == 0 {
		return
	}

	m.maxShift = 0
	if len(m.prev) == len(m.snap.Positions) {
		for i := 0; i < len(m.snap.Positions); i += dof {
			var d2 float64
			for k := 0; k < dof; k++ {
				d := m.snap.Positions[i+k] - m.prev[i+k]
				d2 += d * d
			}
			if shift := math.Sqrt(d2); shift > m.maxShift {
				m.maxShift = shift
			}
		}
	}
	m.prev = m.snap.Positions

	m.extent = make([]float64, dof)
	for k := 0; k < dof; k++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := k; i < len(m.snap.Positions); i += dof {
			lo = math.Min(lo, m.snap.Positions[i])
			hi = math.Max(hi, m.snap.Positions[i])
		}
		m.extent[k] = hi - lo
	}
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Lodestar " + m.input))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("space pause/resume  q quit"))
	b.WriteString("\n\n")

	status := StyleWarning.Render("paused")
	if m.g.LayoutRunning() {
		status = StyleSuccess.Render("running")
	}

	writeStat := func(label, value string) {
		b.WriteString("  " + StyleDim.Render(fmt.Sprintf("%-10s", label)) + StyleValue.Render(value) + "\n")
	}

	writeStat("state", status)
	writeStat("algorithm", m.snap.Algorithm)
	writeStat("step", StyleNumber.Render(fmt.Sprintf("%d", m.snap.Step)))
	writeStat("nodes", fmt.Sprintf("%d", len(m.snap.NodeIDs)))
	writeStat("edges", fmt.Sprintf("%d", len(m.snap.EdgeNodeIndex)/2))

	if len(m.extent) > 0 {
		axes := make([]string, len(m.extent))
		for k, e := range m.extent {
			axes[k] = fmt.Sprintf("%.1f", e)
		}
		writeStat("extent", strings.Join(axes, " × "))
		writeStat("motion", fmt.Sprintf("%.4f", m.maxShift))
	}

	return b.String()
}
