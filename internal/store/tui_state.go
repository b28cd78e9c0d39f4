package store

import (
	"context"
	"encoding/json"
	"strings"
)

const tuiStateKey = "tui_state"

// TUIState stores small, user-facing UI state for restoring the last screen on relaunch.
// It is "best effort": callers should tolerate missing/invalid data.
type TUIState struct {
	Version int `json:"version"`

	// View is one of: dashboard|tasks|chat|notifications|users
	View string `json:"view,omitempty"`

	// TaskMode is one of: list|kanban|calendar
	TaskMode string `json:"taskMode,omitempty"`
	MineOnly bool   `json:"mineOnly,omitempty"`

	// ChannelID is the chat channel that was open, 0 for none.
	ChannelID int `json:"channelId,omitempty"`
}

func (d *DB) LoadTUIState(ctx context.Context) (*TUIState, error) {
	v, ok, err := d.getMeta(ctx, tuiStateKey)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(v) == "" {
		return &TUIState{Version: 1}, nil
	}
	var st TUIState
	if err := json.Unmarshal([]byte(v), &st); err != nil {
		// Best-effort; if corrupted, treat as missing.
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (d *DB) SaveTUIState(ctx context.Context, st *TUIState) error {
	if st == nil {
		return nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return d.setMeta(ctx, tuiStateKey, string(b))
}
