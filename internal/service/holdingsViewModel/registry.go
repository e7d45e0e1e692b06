package holdingsViewModel

import (
	"log/slog"
	"sync"
)

// Registry holds one ViewModel per chat for as long as the chat is logged in.
type Registry struct {
	api   AssetsApi
	cache Cache

	mu    sync.Mutex
	views map[int64]*ViewModel
}

func NewRegistry(api AssetsApi, cache Cache) *Registry {
	return &Registry{
		api:   api,
		cache: cache,
		views: make(map[int64]*ViewModel),
	}
}

// Open replaces any view-model of the chat with an empty one.
func (r *Registry) Open(chatID int64) *ViewModel {
	vm := New(r.api, r.cache)

	r.mu.Lock()
	r.views[chatID] = vm
	r.mu.Unlock()

	return vm
}

// Get returns the chat's view-model, creating an empty one if none is open.
func (r *Registry) Get(chatID int64) *ViewModel {
	r.mu.Lock()
	defer r.mu.Unlock()

	vm, ok := r.views[chatID]
	if !ok {
		vm = New(r.api, r.cache)
		r.views[chatID] = vm
	}
	return vm
}

func (r *Registry) Close(chatID int64) {
	r.mu.Lock()
	_, ok := r.views[chatID]
	delete(r.views, chatID)
	r.mu.Unlock()

	if ok {
		slog.Debug("view-model closed", slog.Int64("chatID", chatID))
	}
}
