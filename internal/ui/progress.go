package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// TransitionMsg carries one tracker transition into the progress view.
type TransitionMsg deploy.Transition

// DoneMsg ends the progress view with the attempt's result.
type DoneMsg struct {
	Outcome *deploy.Outcome
	Err     error
}

// PollMsg reports one backend status query.
type PollMsg struct {
	Poll   int
	Status string
}

type progressTick struct{}

// step is one line of the checklist.
type step struct {
	label string
	state deploy.State
}

var deploySteps = []step{
	{"Submit transaction", deploy.StateSubmitting},
	{"Wait for confirmation", deploy.StatePending},
	{"Confirmed", deploy.StateConfirmed},
	{"Resolve contract address", deploy.StateAddressResolved},
}

// ProgressModel renders a deployment as a live checklist.
type ProgressModel struct {
	Title string
	// Cancel, if set, is called when the user presses ctrl+c.
	Cancel func()

	reached map[deploy.State]bool
	current deploy.State
	tx      common.Hash
	address common.Address
	poll    int
	err     error
	frame   int
	done    bool
	started time.Time
}

// NewProgressModel returns an idle checklist.
func NewProgressModel(title string, cancel func()) ProgressModel {
	return ProgressModel{Title: title, Cancel: cancel, reached: map[deploy.State]bool{}, started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return progressTick{} })
}

func (m ProgressModel) Init() tea.Cmd { return tick() }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.Cancel != nil {
			m.Cancel()
		}
	case progressTick:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	case TransitionMsg:
		m = m.apply(deploy.Transition(msg))
	case PollMsg:
		m.poll = msg.Poll
	case DoneMsg:
		m.done = true
		if msg.Err != nil && m.err == nil {
			m.err = msg.Err
		}
		if msg.Outcome != nil && msg.Outcome.Address != (common.Address{}) {
			m.address = msg.Outcome.Address
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) apply(t deploy.Transition) ProgressModel {
	if m.reached == nil {
		m.reached = map[deploy.State]bool{}
	}
	m.current = t.To
	m.reached[t.To] = true
	if t.TxHash != (common.Hash{}) {
		m.tx = t.TxHash
	}
	if t.Address != (common.Address{}) {
		m.address = t.Address
	}
	if t.Poll > 0 {
		m.poll = t.Poll
	}
	if t.Err != nil {
		m.err = t.Err
	}
	return m
}

type stepStatus int

const (
	stepTodo stepStatus = iota
	stepActive
	stepDone
	stepFailed
	stepWarn
)

// status derives a checklist line's state from the furthest state reached.
func (m ProgressModel) status(i int) stepStatus {
	f := m.furthest()
	switch m.current {
	case deploy.StateAddressResolved:
		return stepDone
	case deploy.StateAddressUnresolved:
		if i == len(deploySteps)-1 {
			return stepWarn
		}
		return stepDone
	case deploy.StateFailed:
		switch {
		case i < f:
			return stepDone
		case i == f:
			return stepFailed
		}
		return stepTodo
	}
	if f >= 0 && deploySteps[f].state == deploy.StateConfirmed {
		f++
	}
	switch {
	case i < f:
		return stepDone
	case i == f && !m.done:
		return stepActive
	}
	return stepTodo
}

func (m ProgressModel) View() string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.Title) + "\n")

	spin := StyleBrand.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	for i, s := range deploySteps {
		var mark, label string
		switch m.status(i) {
		case stepWarn:
			mark, label = StyleWarning.Render("!"), StyleWarning.Render("Address not found in receipt")
		case stepFailed:
			mark, label = StyleError.Render("✗"), StyleError.Render(s.label)
		case stepDone:
			mark, label = StyleSuccess.Render("✓"), s.label
		case stepActive:
			mark, label = spin, StyleValue.Render(s.label)
		default:
			mark, label = StyleMeta.Render("·"), StyleMeta.Render(s.label)
		}
		sb.WriteString(fmt.Sprintf("  %s %s%s\n", mark, label, m.detail(s.state)))
	}
	if m.err != nil && m.current != deploy.StateAddressUnresolved {
		sb.WriteString("\n" + Err(deploy.Message(m.err)) + "\n")
	}
	if !m.done {
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("\n  %s elapsed · ctrl+c to stop waiting", time.Since(m.started).Round(time.Second))) + "\n")
	}
	return sb.String()
}

// furthest is the checklist index of the latest step reached, -1 before the
// first transition.
func (m ProgressModel) furthest() int {
	n := -1
	for s := range m.reached {
		for i, st := range deploySteps {
			if (st.state == s || (s == deploy.StateAddressUnresolved && st.state == deploy.StateAddressResolved)) && i > n {
				n = i
			}
		}
	}
	return n
}

func (m ProgressModel) detail(s deploy.State) string {
	switch s {
	case deploy.StatePending:
		var parts []string
		if m.tx != (common.Hash{}) {
			parts = append(parts, TruncateAddr(m.tx.Hex()))
		}
		if m.poll > 0 {
			parts = append(parts, fmt.Sprintf("poll %d", m.poll))
		}
		if len(parts) > 0 {
			return "  " + StyleMeta.Render(strings.Join(parts, " · "))
		}
	case deploy.StateAddressResolved:
		if m.address != (common.Address{}) {
			return "  " + Addr(m.address.Hex())
		}
	}
	return ""
}

// Progress drives a ProgressModel from tracker callbacks.
type Progress struct {
	program *tea.Program
	plain   io.Writer
}

// NewProgress creates a live view on out. With plain set, transitions are
// printed as lines instead (for non-interactive output).
func NewProgress(title string, out io.Writer, plain bool, cancel func()) *Progress {
	if plain {
		fmt.Fprintln(out, StyleTitle.Render(title))
		return &Progress{plain: out}
	}
	m := NewProgressModel(title, cancel)
	return &Progress{program: tea.NewProgram(m, tea.WithOutput(out), tea.WithInput(nil))}
}

// Observe is passed to deploy.WithObserver.
func (p *Progress) Observe(t deploy.Transition) {
	if p.plain != nil {
		fmt.Fprintln(p.plain, PlainTransition(t))
		return
	}
	p.program.Send(TransitionMsg(t))
}

// ObservePoll is passed to deploy.WithPollHook.
func (p *Progress) ObservePoll(n int, status string) {
	if p.plain != nil {
		fmt.Fprintf(p.plain, "  %-18s poll=%d status=%s\n", deploy.StatePending, n, status)
		return
	}
	p.program.Send(PollMsg{Poll: n, Status: status})
}

// Run executes fn while the view is shown and returns its result.
func (p *Progress) Run(fn func() (*deploy.Outcome, error)) (*deploy.Outcome, error) {
	if p.plain != nil {
		return fn()
	}
	var (
		out *deploy.Outcome
		err error
	)
	go func() {
		out, err = fn()
		p.program.Send(DoneMsg{Outcome: out, Err: err})
	}()
	if _, runErr := p.program.Run(); runErr != nil {
		return nil, fmt.Errorf("progress view: %w", runErr)
	}
	return out, err
}

// PlainTransition formats a transition as a log-style line.
func PlainTransition(t deploy.Transition) string {
	line := fmt.Sprintf("  %-18s", t.To.String())
	if t.TxHash != (common.Hash{}) {
		line += " tx=" + t.TxHash.Hex()
	}
	if t.Poll > 0 {
		line += fmt.Sprintf(" poll=%d", t.Poll)
	}
	if t.Address != (common.Address{}) {
		line += " address=" + t.Address.Hex()
	}
	if t.Err != nil {
		line += " error=" + deploy.Message(t.Err)
	}
	return line
}
