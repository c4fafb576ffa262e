package agent

import "errors"

var (
	// ErrAlreadyRunning Run 已在执行
	ErrAlreadyRunning = errors.New("agent: dispatch loop already running")

	// ErrNotConnected Agent 未连接
	ErrNotConnected = errors.New("agent: not connected")
)
