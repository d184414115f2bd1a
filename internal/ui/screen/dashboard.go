// internal/ui/screen/dashboard.go
package screen

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/ui"
	"github.com/rovshanmuradov/sui-lending/internal/ui/component"
	"github.com/rovshanmuradov/sui-lending/internal/ui/router"
	"github.com/rovshanmuradov/sui-lending/internal/ui/state"
	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// panelMode is the state of the action panel
type panelMode int

const (
	modeInput panelMode = iota
	modePreviewing
	modeConfirm
	modeSubmitting
)

func (m panelMode) String() string {
	switch m {
	case modePreviewing:
		return "previewing"
	case modeConfirm:
		return "confirm"
	case modeSubmitting:
		return "submitting"
	default:
		return "input"
	}
}

// notice is the last result line shown under the action panel
type notice struct {
	text  string
	isErr bool
}

// DashboardScreen shows the position, price and protocol stats and hosts the
// deposit / borrow / repay / withdraw forms
type DashboardScreen struct {
	width  int
	height int
	keyMap ui.KeyMap
	svc    *ui.Services
	logger *zap.Logger

	// UI components
	header  *component.Header
	gauge   *component.LTVGauge
	input   *component.AmountInput
	logPane *component.LogPane
	helpBar *component.HelpBar

	// State
	cache   *state.AccountCache
	actions []risk.Action
	active  int
	mode    panelMode
	pending *ui.PreviewMsg
	limit   lending.Limit
	notice  notice

	// Styling
	panelStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	mutedStyle   lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	confirmStyle lipgloss.Style
}

// NewDashboardScreen creates the dashboard over svc
func NewDashboardScreen(svc *ui.Services) *DashboardScreen {
	keyMap := ui.DefaultKeyMap()

	s := &DashboardScreen{
		keyMap:  keyMap,
		svc:     svc,
		logger:  svc.Log("dashboard"),
		header:  component.NewHeader(svc.Wallet),
		gauge:   component.NewLTVGauge(svc.Policy.Risk, 30),
		input:   component.NewAmountInput(risk.Actions[0].Token().Symbol),
		logPane: component.NewLogPane(svc.Logs, 200),
		helpBar: component.NewHelpBar(),
		cache:   state.NewAccountCache(svc.Policy.Risk, svc.Log("cache")),
		actions: risk.Actions,

		panelStyle:   style.PanelStyle,
		labelStyle:   style.LabelStyle,
		valueStyle:   style.ValueStyle,
		mutedStyle:   style.MutedStyle,
		errorStyle:   style.ErrorStyle,
		successStyle: style.SuccessStyle,
		warningStyle: style.WarningStyle,
		confirmStyle: style.ConfirmStyle,
	}

	s.helpBar.SetKeyBindings(keyMap.ContextualHelp(ui.RouteDashboard))
	s.helpBar.SetFullHelp(keyMap.FullHelp())
	s.refreshPanel()
	return s
}

// Init initializes the screen
func (s *DashboardScreen) Init() tea.Cmd {
	if s.svc.Monitor != nil {
		s.svc.Monitor.Refresh()
	}
	return s.input.Focus()
}

// Action returns the selected action
func (s *DashboardScreen) Action() risk.Action {
	return s.actions[s.active]
}

// Cache exposes the account state the screen renders from
func (s *DashboardScreen) Cache() *state.AccountCache {
	return s.cache
}

// Update handles messages for the dashboard
func (s *DashboardScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		cmds = append(cmds, s.handleKey(msg))

	case ui.PreviewMsg:
		s.handlePreview(msg)

	case ui.ActionResultMsg:
		s.handleResult(msg)

	case ui.LogMsg:
		s.logPane.Refresh()

	default:
		if s.handleMonitorMsg(msg) {
			s.refreshPanel()
		}
	}

	return s, tea.Batch(cmds...)
}

func (s *DashboardScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, s.keyMap.Quit) && msg.String() == "ctrl+c" {
		return tea.Quit
	}

	switch s.mode {
	case modeConfirm:
		switch {
		case key.Matches(msg, s.keyMap.Confirm):
			return s.submit()
		case key.Matches(msg, s.keyMap.Cancel):
			s.mode = modeInput
			s.pending = nil
			s.notice = notice{text: "cancelled"}
		}
		return nil

	case modePreviewing, modeSubmitting:
		// ждём результат, ввод заблокирован
		return nil
	}

	switch {
	case key.Matches(msg, s.keyMap.Quit):
		return tea.Quit

	case key.Matches(msg, s.keyMap.Tab):
		s.selectAction(s.active + 1)

	case key.Matches(msg, s.keyMap.ShiftTab):
		s.selectAction(s.active - 1)

	case key.Matches(msg, s.keyMap.Max):
		s.fillMax()

	case key.Matches(msg, s.keyMap.Submit):
		return s.preview()

	case key.Matches(msg, s.keyMap.Refresh):
		if s.svc.Monitor != nil {
			s.svc.Monitor.Refresh()
			s.notice = notice{text: "refreshing…"}
		}

	case key.Matches(msg, s.keyMap.History):
		return ui.Navigate(ui.RouteHistory)

	case key.Matches(msg, s.keyMap.Logs):
		return ui.Navigate(ui.RouteLogs)

	case key.Matches(msg, s.keyMap.ToggleLogs):
		s.logPane.SetVisible(!s.logPane.IsVisible())
		s.layout()

	case key.Matches(msg, s.keyMap.Help):
		s.helpBar.ToggleFull()

	case key.Matches(msg, s.keyMap.Up), key.Matches(msg, s.keyMap.Down):
		return s.logPane.Update(msg)

	default:
		return s.input.Update(msg)
	}
	return nil
}

// selectAction switches the form, wrapping around
func (s *DashboardScreen) selectAction(i int) {
	n := len(s.actions)
	s.active = ((i % n) + n) % n
	s.input = component.NewAmountInput(s.Action().Token().Symbol)
	s.input.SetWidth(s.formWidth())
	s.notice = notice{}
	s.refreshPanel()
}

// refreshPanel re-derives the limit of the selected action from the cache
// and rewires the input validator
func (s *DashboardScreen) refreshPanel() {
	action := s.Action()

	if s.svc.ReadOnly() {
		s.input.SetDisabled("read-only mode: configure wallet_address and signer_url to " + string(action))
		return
	}
	snap := s.cache.Current()
	if snap == nil {
		s.input.SetDisabled("loading position…")
		return
	}

	s.limit = lending.Limits(snap, s.svc.Policy)[action]
	if !s.limit.Enabled() {
		s.input.SetDisabled(disabledReason(action, s.limit, snap))
		return
	}
	s.input.SetDisabled("")
	s.input.SetValidator(s.limit.Validate)
}

func disabledReason(action risk.Action, limit lending.Limit, snap *lending.Snapshot) string {
	if limit.Unavailable != nil {
		return limit.Unavailable.Error() + ", " + string(action) + " is paused"
	}
	switch action {
	case risk.ActionDeposit:
		return "insufficient SUI balance for deposit and gas"
	case risk.ActionBorrow:
		if snap.Position.Collateral.IsZero() {
			return "deposit collateral to borrow"
		}
		return "no borrowing capacity left"
	case risk.ActionRepay:
		if snap.Position.Debt.IsZero() {
			return "nothing to repay"
		}
		return "no SUSD balance to repay with"
	case risk.ActionWithdraw:
		if snap.Position.Collateral.IsZero() {
			return "no collateral deposited"
		}
		return "collateral is locked by debt"
	default:
		return "unavailable"
	}
}

func (s *DashboardScreen) fillMax() {
	if s.input.Disabled() {
		return
	}
	s.input.SetValue(s.limit.Max.String())
}

// SetSize updates the screen dimensions
func (s *DashboardScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.layout()
}

func (s *DashboardScreen) layout() {
	s.header.SetWidth(s.width)
	s.helpBar.SetWidth(s.width)
	s.input.SetWidth(s.formWidth())
	s.gauge.SetWidth(max(s.formWidth()-24, 10))

	logHeight := max(s.height/4, 6)
	s.logPane.SetSize(s.width, logHeight)
}

func (s *DashboardScreen) formWidth() int {
	return max(style.AdaptiveWidth(s.width, 50)-2, 30)
}

// View renders the dashboard
func (s *DashboardScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	parts := []string{s.header.View()}

	if errs := s.renderErrors(); errs != "" {
		parts = append(parts, errs)
	}

	action := s.panelStyle.Width(s.formWidth()).Render(s.renderActionPanel())
	position := s.panelStyle.Width(s.formWidth()).Render(s.renderPositionPanel())
	parts = append(parts, style.AdaptiveJoinHorizontal(s.width, action, position))

	if s.logPane.IsVisible() {
		parts = append(parts, s.logPane.View())
	}

	if s.mode == modeConfirm {
		parts = append(parts, s.helpBar.ViewContextual(s.keyMap.ConfirmHelp()))
	} else {
		parts = append(parts, s.helpBar.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s *DashboardScreen) renderTabs() string {
	tabs := make([]string, len(s.actions))
	for i, a := range s.actions {
		label := strings.ToUpper(string(a[:1])) + string(a[1:])
		switch {
		case i == s.active:
			tabs[i] = style.ActiveTabStyle.Render(label)
		case s.mode != modeInput:
			tabs[i] = style.DisabledTabStyle.Render(label)
		default:
			tabs[i] = style.TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (s *DashboardScreen) renderActionPanel() string {
	lines := []string{s.renderTabs(), ""}

	token := s.Action().Token()
	if !s.input.Disabled() {
		lines = append(lines, s.labelStyle.Render("Available ")+
			s.valueStyle.Render(s.limit.Max.Format(4)+" "+token.Symbol)+
			s.mutedStyle.Render(" · min "+s.limit.Min.String()))
	}
	lines = append(lines, s.input.View())

	switch s.mode {
	case modePreviewing:
		lines = append(lines, s.mutedStyle.Render("preparing transaction…"))
	case modeConfirm:
		lines = append(lines, s.renderConfirm())
	case modeSubmitting:
		lines = append(lines, s.warningStyle.Render(fmt.Sprintf("submitting %s… waiting for confirmation", s.pending.Action)))
	}

	if s.notice.text != "" {
		if s.notice.isErr {
			lines = append(lines, s.errorStyle.Render(s.notice.text))
		} else {
			lines = append(lines, s.successStyle.Render(s.notice.text))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (s *DashboardScreen) renderConfirm() string {
	p := s.pending
	if p == nil {
		return ""
	}
	lines := []string{
		fmt.Sprintf("%s %s %s", strings.ToUpper(string(p.Action)), p.Amount.String(), p.Action.Token().Symbol),
		fmt.Sprintf("LTV after     %s%%", p.Metrics.LTV.StringFixed(2)),
		fmt.Sprintf("Health after  %s (%s)", p.Metrics.Health.String(), p.Metrics.Status),
		fmt.Sprintf("Est. gas      %s SUI", p.Gas.Format(6)),
	}
	if p.Metrics.Status != risk.StatusHealthy {
		lines = append(lines, "warning: position will be "+string(p.Metrics.Status))
	}
	lines = append(lines, "confirm? [y/n]")
	return s.confirmStyle.Render(strings.Join(lines, "\n"))
}

func (s *DashboardScreen) renderPositionPanel() string {
	lines := []string{style.SubHeaderStyle.Render("Position")}

	snap := s.cache.Current()
	if snap == nil {
		lines = append(lines, s.mutedStyle.Render("no position loaded"))
	} else {
		lines = append(lines,
			s.gauge.View(),
			s.row("Collateral", snap.Position.Collateral.Format(4)+" SUI"),
			s.row("Debt", snap.Position.Debt.Format(4)+" SUSD"),
			s.row("Max borrow", snap.Metrics.MaxBorrow.Format(4)+" SUSD"),
			s.row("Max withdraw", snap.Metrics.MaxWithdraw.Format(4)+" SUI"),
			s.row("Wallet", snap.Balances.SUI.Format(4)+" SUI · "+snap.Balances.SUSD.Format(2)+" SUSD"),
		)
	}

	if stats, ok := s.cache.Stats(); ok {
		lines = append(lines, "", style.SubHeaderStyle.Render("Protocol"),
			s.row("TVL", "$"+stats.TotalValueLocked.StringFixed(2)),
			s.row("Deposits", stats.TotalDeposits.Format(2)+" SUI"),
			s.row("Borrowed", stats.TotalBorrowed.Format(2)+" SUSD"),
			s.row("Utilization", stats.Utilization.StringFixed(2)+"%"),
		)
	}

	if alerts := s.cache.Alerts(); len(alerts) > 0 {
		lines = append(lines, "", style.SubHeaderStyle.Render("Alerts"))
		for _, a := range alerts {
			st := s.warningStyle
			if a.Severity == "critical" {
				st = s.errorStyle
			}
			lines = append(lines, st.Render(a.Timestamp.Format("15:04:05")+" "+a.Message))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (s *DashboardScreen) row(label, value string) string {
	return s.labelStyle.Width(14).Render(label) + s.valueStyle.Render(value)
}

func (s *DashboardScreen) renderErrors() string {
	errs := s.cache.Errors()
	if len(errs) == 0 {
		return ""
	}
	var lines []string
	for _, source := range pollSources {
		if err, ok := errs[source]; ok {
			lines = append(lines, s.errorStyle.Render(fmt.Sprintf("✗ %s: %v", source, err)))
		}
	}
	return strings.Join(lines, "\n")
}
