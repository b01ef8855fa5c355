// Package tui is the terminal front end for submitting a resume and
// rendering the analysis. A single bubbletea event loop owns all state;
// network submission and animation ticks are commands that deliver
// messages back into Update.
package tui

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sreekeshm77/ATS-project/internal/client"
	atsErrors "github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/types"
)

type uiState int

const (
	stateIdle uiState = iota
	stateSubmitting
	stateSuccess
	stateFailed
)

// analysisClient is the slice of the HTTP client the model needs
type analysisClient interface {
	Analyze(ctx context.Context, upload client.Upload, jobDescription string) (*types.AnalysisResult, error)
}

// revealState counts how many items of each result list are visible
type revealState struct {
	strengths       int
	improvements    int
	recommendations int
	present         int
	missing         int
}

// Model drives the submit flow: idle -> submitting -> success or failed,
// with exactly one submission in flight at a time.
type Model struct {
	client         analysisClient
	upload         *client.Upload
	jobDescription string

	state  uiState
	errMsg string

	phases      progressPhases
	submitStart time.Time

	result    *types.AnalysisResult
	reveal    revealState
	seq       *Sequencer
	animStart time.Time

	now          time.Time
	spinnerFrame int

	width    int
	height   int
	quitting bool
}

// NewModel creates the submit model. A nil upload is allowed; submitting
// without one shows an error and stays idle.
func NewModel(c analysisClient, upload *client.Upload, jobDescription string) *Model {
	return &Model{
		client:         c,
		upload:         upload,
		jobDescription: jobDescription,
		now:            time.Now(),
	}
}

type tickMsg time.Time

type analysisCompleteMsg struct {
	result *types.AnalysisResult
}

type analysisErrorMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the animation clock
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tick())
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.startSubmit()
		}

	case tickMsg:
		m.now = time.Time(msg)
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		if m.state == stateSubmitting {
			m.phases.advanceTo(m.now.Sub(m.submitStart))
		}
		if m.state == stateSuccess && m.seq != nil {
			m.seq.Advance(m.now)
		}
		return m, tick()

	case analysisCompleteMsg:
		m.phases.finish()
		m.state = stateSuccess
		m.result = msg.result
		m.startRender()

	case analysisErrorMsg:
		m.phases.finish()
		m.state = stateFailed
		m.errMsg = submissionErrorMessage(msg.err)
		m.result = nil
		m.seq = nil
	}

	return m, nil
}

// startSubmit begins a submission unless one is already in flight
func (m *Model) startSubmit() (tea.Model, tea.Cmd) {
	if m.state == stateSubmitting {
		return m, nil
	}
	if m.upload == nil {
		m.errMsg = "Please select a resume file first."
		m.state = stateIdle
		return m, nil
	}

	m.state = stateSubmitting
	m.errMsg = ""
	m.result = nil
	m.seq = nil
	m.reveal = revealState{}
	m.phases = progressPhases{}
	m.submitStart = m.now
	return m, m.submitCmd()
}

// submitCmd performs the upload off the event loop. No timeout and no
// cancellation: the server owns deadlines.
func (m *Model) submitCmd() tea.Cmd {
	c := m.client
	upload := *m.upload
	jobDescription := m.jobDescription

	return func() tea.Msg {
		result, err := c.Analyze(context.Background(), upload, jobDescription)
		if err != nil {
			return analysisErrorMsg{err: err}
		}
		return analysisCompleteMsg{result: result}
	}
}

// startRender resets reveal state and schedules the staggered reveals
// for the new result. Lists reveal concurrently; within a list each
// item follows the previous by staggerDelay.
func (m *Model) startRender() {
	m.reveal = revealState{}
	m.animStart = m.now

	var steps []Step
	addList := func(n int, counter *int) {
		for i := range n {
			steps = append(steps, Step{
				Delay:    time.Duration(i) * staggerDelay,
				Mutation: func() { *counter++ },
			})
		}
	}

	r := m.result
	addList(len(r.Strengths), &m.reveal.strengths)
	addList(len(r.AreasForImprovement), &m.reveal.improvements)
	addList(len(r.Recommendations), &m.reveal.recommendations)
	addList(len(r.KeywordAnalysis.PresentKeywords), &m.reveal.present)
	addList(len(r.KeywordAnalysis.MissingKeywords), &m.reveal.missing)

	m.seq = NewSequencer(m.now, steps)
	m.seq.Advance(m.now)
}

// submissionErrorMessage picks what the user sees: the server's error
// string verbatim when there is one, the structured message for local
// failures, a generic line otherwise
func submissionErrorMessage(err error) string {
	var serverErr *client.ServerError
	if stderrors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	var appErr *atsErrors.AppError
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "An error occurred while analyzing your resume."
}

// View renders the current state
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.state {
	case stateSubmitting:
		return m.submittingView()
	case stateSuccess:
		return m.resultView()
	case stateFailed:
		return m.failedView()
	default:
		return m.idleView()
	}
}

func (m *Model) idleView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ATS Resume Analyzer"))
	b.WriteString("\n\n")

	if m.upload != nil {
		meta := m.upload.Meta()
		b.WriteString(fmt.Sprintf("Selected: %s (%s)\n", meta.Name, meta.DisplaySize()))
	} else {
		b.WriteString(subtleStyle.Render("No resume selected.") + "\n")
	}
	if m.jobDescription != "" {
		b.WriteString(subtleStyle.Render("Matching against the provided job description.") + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}

	b.WriteString("\n" + subtleStyle.Render("Press 'enter' to analyze, 'q' to quit"))
	return m.place(cardStyle.Render(b.String()))
}

func (m *Model) submittingView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Analyzing your resume"))
	b.WriteString("\n\n")

	for i, label := range phaseLabels {
		switch m.phases.status(i) {
		case phaseDone:
			b.WriteString(successStyle.Render("✓") + " " + label)
		case phaseActive:
			b.WriteString(titleStyle.Render(spinnerFrames[m.spinnerFrame]) + " " + label)
		default:
			b.WriteString(subtleStyle.Render("· " + label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + subtleStyle.Render("Press 'q' to quit"))
	return m.place(cardStyle.Render(b.String()))
}

func (m *Model) resultView() string {
	r := *m.result
	elapsed := m.now.Sub(m.animStart)

	sections := []string{
		m.scoreSection(r, elapsed),
		"",
		renderBar("Keywords", r.KeywordAnalysis.KeywordScore),
		renderBar("Formatting", r.FormattingScore),
		renderBar("Content", r.ContentQualityScore),
		renderBar("Impact", r.ImpactScore),
		"",
		renderList("Strengths", r.Strengths, m.reveal.strengths, emptyListPlaceholder),
		"",
		renderList("Areas for Improvement", r.AreasForImprovement, m.reveal.improvements, emptyListPlaceholder),
		"",
		renderList("Recommendations", r.Recommendations, m.reveal.recommendations, emptyListPlaceholder),
		"",
		renderChips("Keywords Found", r.KeywordAnalysis.PresentKeywords, m.reveal.present, chipPresentStyle, emptyListPlaceholder),
		"",
		renderChips("Missing Keywords", r.KeywordAnalysis.MissingKeywords, m.reveal.missing, chipMissingStyle, noMissingKeywordsNotice),
		"",
		subtleStyle.Render("Press 'enter' to analyze again, 'q' to quit"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return m.place(cardStyle.Render(content))
}

func (m *Model) scoreSection(r types.AnalysisResult, elapsed time.Duration) string {
	value := easedScore(r.ATSScore, elapsed)
	palette := gradeColors(r.ATSScore)

	dial := renderDial(float64(value), lipgloss.Color(palette.from))
	number := gradientText(fmt.Sprintf("%d/100", value), palette)
	grade := gradientText(types.Grade(r.ATSScore), palette)

	head := fmt.Sprintf("%s  %s  %s", dial, number, grade)
	if r.OverallFeedback == "" {
		return head
	}
	return head + "\n\n" + r.OverallFeedback
}

func (m *Model) failedView() string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("Analysis failed"))
	b.WriteString("\n\n")
	b.WriteString(m.errMsg)
	b.WriteString("\n\n")
	b.WriteString(subtleStyle.Render("Press 'enter' to try again, 'q' to quit"))
	return m.place(cardStyle.Render(b.String()))
}

func (m *Model) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
