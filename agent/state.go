package agent

import (
	"fmt"
	"slices"
)

// State 定义 Agent 生命周期状态
type State string

const (
	StateInit      State = "init"      // Created, never connected
	StateConnected State = "connected" // Transport open, loop not running
	StateRunning   State = "running"   // Dispatch loop running
	StateStopped   State = "stopped"   // Disconnected
)

// validTransitions 定义合法的状态转换
var validTransitions = map[State][]State{
	StateInit:      {StateConnected},
	StateConnected: {StateRunning, StateStopped},
	StateRunning:   {StateConnected, StateStopped},
	StateStopped:   {StateConnected},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("agent: invalid state transition: %s -> %s", e.From, e.To)
}
