package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sreekeshm77/ATS-project/internal/client"
	"github.com/sreekeshm77/ATS-project/internal/config"
)

// Run launches the submit UI for a document on disk. The file is
// validated and read before the program starts, so intake failures
// print as plain errors instead of tearing up the terminal.
func Run(cfg config.ClientConfig, path, jobDescription string) error {
	upload, err := client.LoadUpload(path)
	if err != nil {
		return err
	}

	model := NewModel(client.New(cfg), &upload, jobDescription)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
