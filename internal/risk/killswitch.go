package risk

import (
	"sync"
	"time"

	"wyckoff/internal/logger"
)

// KillSwitchStatus is a read-only snapshot for dashboards and the API.
type KillSwitchStatus struct {
	Active      bool      `json:"active"`
	ActivatedAt time.Time `json:"activated_at,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// KillSwitch is the process-wide order-submission halt. It starts inactive
// and flips only through explicit Activate/Deactivate calls. While active it
// is the first check on every submission path; existing positions are
// unaffected and close-out remains allowed.
type KillSwitch struct {
	mu          sync.RWMutex
	active      bool
	activatedAt time.Time
	reason      string

	onChange func(active bool, reason string)
}

func NewKillSwitch() *KillSwitch {
	return &KillSwitch{}
}

// SetChangeHandler installs a callback fired once per flip.
func (k *KillSwitch) SetChangeHandler(fn func(active bool, reason string)) {
	k.mu.Lock()
	k.onChange = fn
	k.mu.Unlock()
}

func (k *KillSwitch) Activate(reason string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		return
	}
	k.active = true
	k.activatedAt = time.Now().UTC()
	k.reason = reason
	logger.WarnEvent("kill_switch_activated", "reason", reason)
	if k.onChange != nil {
		go k.onChange(true, reason)
	}
}

func (k *KillSwitch) Deactivate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.active {
		return
	}
	k.active = false
	k.reason = ""
	k.activatedAt = time.Time{}
	logger.Event("kill_switch_deactivated")
	if k.onChange != nil {
		go k.onChange(false, "")
	}
}

func (k *KillSwitch) Active() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.active
}

func (k *KillSwitch) Status() KillSwitchStatus {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return KillSwitchStatus{
		Active:      k.active,
		ActivatedAt: k.activatedAt,
		Reason:      k.reason,
	}
}
