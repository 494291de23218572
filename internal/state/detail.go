package state

import (
	"slices"
	"sync"
)

type DetailState struct {
	// CurrentID == 0 - ничего не открыто
	CurrentID int
	// ViewedIDs - порядок просмотра, без повторов
	ViewedIDs []int
}

func (d DetailState) HasCurrent() bool {
	return d.CurrentID != 0
}

func (d DetailState) HasViewed(id int) bool {
	return slices.Contains(d.ViewedIDs, id)
}

type DetailStore struct {
	mu    sync.Mutex
	state DetailState
}

func NewDetailStore() *DetailStore {
	return &DetailStore{}
}

// SetCurrentAnime открывает тайтл и добавляет его в историю, если его там нет
func (d *DetailStore) SetCurrentAnime(id int) DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.CurrentID = id
	if !slices.Contains(d.state.ViewedIDs, id) {
		d.state.ViewedIDs = append(d.state.ViewedIDs, id)
	}
	return d.snapshotLocked()
}

func (d *DetailStore) ClearCurrentAnime() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.CurrentID = 0
	return d.snapshotLocked()
}

func (d *DetailStore) ClearViewedHistory() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.ViewedIDs = nil
	return d.snapshotLocked()
}

func (d *DetailStore) HasViewed(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.HasViewed(id)
}

func (d *DetailStore) State() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// snapshotLocked - копия, чтобы вызывающий не держал наш слайс
func (d *DetailStore) snapshotLocked() DetailState {
	return DetailState{
		CurrentID: d.state.CurrentID,
		ViewedIDs: slices.Clone(d.state.ViewedIDs),
	}
}
