// internal/monitor/alerts.go
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

// AlertType represents different types of alerts
type AlertType string

const (
	AlertTypeHealthWarning AlertType = "health_warning"
	AlertTypeLiquidatable  AlertType = "liquidatable"
	AlertTypeStalePrice    AlertType = "stale_price"
)

// Severity levels
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert represents a triggered alert
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Owner     string    `json:"owner"`
	Message   string    `json:"message"`
	Details   string    `json:"details"`
	Severity  string    `json:"severity"`

	Health string          `json:"health,omitempty"`
	LTV    decimal.Decimal `json:"ltv"`
	Price  decimal.Decimal `json:"price"`
}

// AlertConfig holds alert configuration
type AlertConfig struct {
	// StalePrice alerts when the oracle could not be read
	StalePrice bool `json:"stale_price"`

	// Alert cooldown to prevent spam
	CooldownDuration time.Duration `json:"cooldown_duration"`
}

// DefaultAlertConfig returns default alert configuration
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		StalePrice:       true,
		CooldownDuration: 5 * time.Minute,
	}
}

// AlertManager raises alerts when a position approaches liquidation.
type AlertManager struct {
	mu     sync.RWMutex
	config AlertConfig
	logger *zap.Logger

	alerts       []Alert
	maxAlerts    int
	alertHistory map[string]time.Time // owner/type -> last alert time
	lastStatus   map[string]risk.Status

	handlers []AlertHandler
}

// AlertHandler is called when an alert is triggered
type AlertHandler func(alert Alert)

// NewAlertManager creates a new alert manager
func NewAlertManager(config AlertConfig, logger *zap.Logger) *AlertManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertManager{
		config:       config,
		logger:       logger,
		alerts:       make([]Alert, 0, 100),
		maxAlerts:    1000,
		alertHistory: make(map[string]time.Time),
		lastStatus:   make(map[string]risk.Status),
	}
}

// AddHandler adds an alert handler
func (am *AlertManager) AddHandler(handler AlertHandler) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.handlers = append(am.handlers, handler)
}

// CheckSnapshot checks a snapshot for alerts. An alert of a given type fires
// at most once per cooldown, but a worsening status always fires.
func (am *AlertManager) CheckSnapshot(snap *lending.Snapshot) []Alert {
	am.mu.Lock()
	defer am.mu.Unlock()

	var triggered []Alert
	now := time.Now()
	m := snap.Metrics

	previous, seen := am.lastStatus[snap.Owner]
	am.lastStatus[snap.Owner] = m.Status
	worsened := seen && severityRank(m.Status) > severityRank(previous)

	switch m.Status {
	case risk.StatusLiquidatable:
		if am.allowed(snap.Owner, AlertTypeLiquidatable, now, worsened) {
			triggered = append(triggered, am.newAlert(now, snap, AlertTypeLiquidatable, SeverityCritical,
				fmt.Sprintf("Position can be liquidated: health %s", m.Health),
				fmt.Sprintf("LTV %s%%, liquidation price $%s", m.LTV.StringFixed(2), m.LiquidationPrice.StringFixed(4))))
		}
	case risk.StatusWarning:
		if am.allowed(snap.Owner, AlertTypeHealthWarning, now, worsened) {
			triggered = append(triggered, am.newAlert(now, snap, AlertTypeHealthWarning, SeverityWarning,
				fmt.Sprintf("Health factor %s is close to liquidation", m.Health),
				fmt.Sprintf("Repay debt or add collateral. Liquidation price $%s", m.LiquidationPrice.StringFixed(4))))
		}
	}

	if am.config.StalePrice && snap.Price.Stale && am.allowed(snap.Owner, AlertTypeStalePrice, now, false) {
		details := "Using fallback price"
		if snap.Price.Cause != nil {
			details = snap.Price.Cause.Error()
		}
		triggered = append(triggered, am.newAlert(now, snap, AlertTypeStalePrice, SeverityInfo,
			fmt.Sprintf("Oracle unavailable, using fallback price $%s", snap.Price.Value), details))
	}

	for _, alert := range triggered {
		am.alertHistory[historyKey(alert.Owner, alert.Type)] = now
		am.triggerAlert(alert)
	}
	return triggered
}

func (am *AlertManager) allowed(owner string, typ AlertType, now time.Time, force bool) bool {
	if force {
		return true
	}
	last, ok := am.alertHistory[historyKey(owner, typ)]
	return !ok || now.Sub(last) >= am.config.CooldownDuration
}

func (am *AlertManager) newAlert(now time.Time, snap *lending.Snapshot, typ AlertType, severity, message, details string) Alert {
	return Alert{
		ID:        fmt.Sprintf("alert_%d", now.UnixNano()),
		Type:      typ,
		Timestamp: now,
		Owner:     snap.Owner,
		Message:   message,
		Details:   details,
		Severity:  severity,
		Health:    snap.Metrics.Health.String(),
		LTV:       snap.Metrics.LTV,
		Price:     snap.Price.Value,
	}
}

func historyKey(owner string, typ AlertType) string {
	return owner + "/" + string(typ)
}

func severityRank(s risk.Status) int {
	switch s {
	case risk.StatusLiquidatable:
		return 2
	case risk.StatusWarning:
		return 1
	default:
		return 0
	}
}

// triggerAlert handles alert triggering
func (am *AlertManager) triggerAlert(alert Alert) {
	if len(am.alerts) >= am.maxAlerts {
		am.alerts = am.alerts[1:]
	}
	am.alerts = append(am.alerts, alert)

	fields := []zap.Field{
		zap.String("type", string(alert.Type)),
		zap.String("wallet", alert.Owner),
		zap.String("message", alert.Message),
	}
	switch alert.Severity {
	case SeverityCritical:
		am.logger.Error("Alert triggered", fields...)
	case SeverityWarning:
		am.logger.Warn("Alert triggered", fields...)
	default:
		am.logger.Info("Alert triggered", fields...)
	}

	for _, handler := range am.handlers {
		go handler(alert)
	}
}

// GetRecentAlerts returns recent alerts
func (am *AlertManager) GetRecentAlerts(limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if limit <= 0 || limit > len(am.alerts) {
		limit = len(am.alerts)
	}
	result := make([]Alert, limit)
	copy(result, am.alerts[len(am.alerts)-limit:])
	return result
}

// ClearHistory clears the alert cooldown history
func (am *AlertManager) ClearHistory() {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.alertHistory = make(map[string]time.Time)
}
