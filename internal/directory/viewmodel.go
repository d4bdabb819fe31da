package directory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/noah-isme/userdesk/internal/reqres"
)

// ErrSuperseded is returned by FetchPage when a newer fetch was issued before
// this one resolved; its response was discarded.
var ErrSuperseded = errors.New("directory: fetch superseded by a newer request")

// Remote is the subset of the directory API the view-model drives.
type Remote interface {
	ListUsers(ctx context.Context, page int) (reqres.Page, error)
	UpdateUser(ctx context.Context, id int64, patch reqres.UserPatch) (reqres.UserPatch, error)
	DeleteUser(ctx context.Context, id int64) error
}

// ListModel owns one session's loaded page. Remote calls run outside the lock,
// so overlapping operations are allowed; fetch results are ordered by ticket.
type ListModel struct {
	remote Remote

	mu     sync.Mutex
	state  PageState
	issued uint64
}

// NewListModel returns a model positioned on page 1 with nothing loaded.
func NewListModel(remote Remote) *ListModel {
	return &ListModel{remote: remote, state: PageState{CurrentPage: 1}}
}

// State returns a snapshot safe to read while other operations run.
func (m *ListModel) State() PageState {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state
	snapshot.Items = slices.Clone(m.state.Items)
	return snapshot
}

// FetchPage loads page n. Only the most recently issued fetch may change state;
// an older response, success or failure, is dropped and reported as ErrSuperseded.
// On failure the previous items stay in place.
func (m *ListModel) FetchPage(ctx context.Context, n int) error {
	m.mu.Lock()
	m.issued++
	ticket := m.issued
	m.state.Loading = true
	m.mu.Unlock()

	page, err := m.remote.ListUsers(ctx, n)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket != m.issued {
		return ErrSuperseded
	}
	m.state.Loading = false
	if err != nil {
		return err
	}
	current := page.Page
	if current <= 0 {
		current = n
	}
	m.state.Items = slices.Clone(page.Data)
	m.state.TotalPages = page.TotalPages
	m.state.CurrentPage = current
	m.state.Loaded = true
	return nil
}

// ChangePage fetches page n unless it is the current page or outside
// [1, TotalPages]. It reports whether a fetch was issued.
func (m *ListModel) ChangePage(ctx context.Context, n int) (bool, error) {
	m.mu.Lock()
	current, total := m.state.CurrentPage, m.state.TotalPages
	m.mu.Unlock()
	if n == current || n < 1 || n > total {
		return false, nil
	}
	return true, m.FetchPage(ctx, n)
}

// UpdateUser sends patch and, on success, merges it into the matching local item
// without refetching. A nil error means the caller may close its edit form.
func (m *ListModel) UpdateUser(ctx context.Context, id int64, patch Patch) error {
	if _, err := m.remote.UpdateUser(ctx, id, patch); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.Items = ApplyUpdate(m.state.Items, id, patch)
	m.mu.Unlock()
	return nil
}

// DeleteUser deletes remotely and, on success, drops the local item.
func (m *ListModel) DeleteUser(ctx context.Context, id int64) error {
	if err := m.remote.DeleteUser(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.Items = ApplyDelete(m.state.Items, id)
	m.mu.Unlock()
	return nil
}

// Find returns the loaded user with id.
func (m *ListModel) Find(id int64) (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FindUser(m.state.Items, id)
}
