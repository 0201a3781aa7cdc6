package app

import (
	"github.com/hireloop/liveroom/internal/core"
	"github.com/hireloop/liveroom/internal/domain"
)

// KickSlowPolicy removes a member whose send buffer stays full. A stalled
// interview client is better rejoined fresh than fed a growing backlog.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackpressure(room domain.SessionID, conn domain.ConnID) core.BackpressureAction {
	return core.KickMember
}
