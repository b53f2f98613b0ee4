package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/stepr/internal/credential"
)

const (
	actionRegister = "register"
	actionVerify   = "verify"
)

type accountModel struct {
	creds  *credential.Store
	width  int
	height int

	registered bool
	userID     string

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	action   *string
	user     *string
	password *string
}

func newAccountModel(c *credential.Store) accountModel {
	action, user, password := actionVerify, "", ""
	return accountModel{
		creds:    c,
		action:   &action,
		user:     &user,
		password: &password,
	}
}

func (a *accountModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

func (a accountModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		registered, err := a.creds.IsRegistered(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Account error: %v", err), isError: true}
		}
		id, _, err := a.creds.UserID(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Account error: %v", err), isError: true}
		}
		return accountDataMsg{registered: registered, userID: id}
	}
}

func (a accountModel) update(msg tea.Msg) (accountModel, tea.Cmd) {
	// Refresh results apply even while the form is open.
	if msg, ok := msg.(accountDataMsg); ok {
		a.registered = msg.registered
		a.userID = msg.userID
		return a, nil
	}

	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Enter) {
			return a.showForm()
		}
	}
	return a, nil
}

func (a accountModel) showForm() (accountModel, tea.Cmd) {
	*a.action = actionVerify
	if !a.registered {
		*a.action = actionRegister
	}
	*a.user = a.userID
	*a.password = ""

	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Action").
				Options(
					huh.NewOption("Verify credentials", actionVerify),
					huh.NewOption("Register (replaces the current user)", actionRegister),
				).Value(a.action),
			huh.NewInput().Title("User ID").Value(a.user).Validate(required("user ID")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(a.password),
		).Title("Account"),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func (a accountModel) updateForm(msg tea.Msg) (accountModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			a.formActive = false
			a.form = nil
			*a.password = ""
			return a, nil
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	if a.form.State == huh.StateCompleted {
		a.formActive = false
		a.form = nil
		action, user, password := *a.action, *a.user, *a.password
		*a.password = ""
		return a, a.submit(action, user, password)
	}

	return a, cmd
}

// submit runs the register or verify action off the UI goroutine.
func (a accountModel) submit(action, user, password string) tea.Cmd {
	creds := a.creds
	return func() tea.Msg {
		ctx := context.Background()
		if action == actionRegister {
			if err := creds.Register(ctx, user, password); err != nil {
				return statusMsg{text: fmt.Sprintf("Register error: %v", err), isError: true}
			}
			return registeredMsg{userID: user}
		}

		ok, err := creds.Verify(ctx, user, password)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Verify error: %v", err), isError: true}
		}
		if !ok {
			return statusMsg{text: "Credentials do not match", isError: true}
		}
		return statusMsg{text: "Credentials verified"}
	}
}

type registeredMsg struct {
	userID string
}

func (a accountModel) view() string {
	w := a.width - 4
	title := titleStyle.Render("Account")

	if a.formActive && a.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", a.form.View()),
		)
	}

	var rows []string
	rows = append(rows, title, "")

	label := lipgloss.NewStyle().Width(16)
	if a.registered {
		rows = append(rows, fmt.Sprintf("  %s %s", label.Render("User ID"), highlightStyle.Render(a.userID)))
		rows = append(rows, fmt.Sprintf("  %s %s", label.Render("Password"), successStyle.Render("stored as SHA-256 digest")))
	} else {
		rows = append(rows, mutedStyle.Render("  No user registered"))
	}

	hint := "Press enter to verify or register"
	if !a.registered {
		hint = "Press enter to register"
	}
	rows = append(rows, "", mutedStyle.Render(hint))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
