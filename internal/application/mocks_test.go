package application_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

// --- Mock implementations ---

type mockPRStore struct {
	mu        sync.Mutex
	prs       map[string]model.PullRequest
	order     []string
	listErr   error
	deleteErr map[string]error
	// conflicts is the number of Update calls that fail with a version conflict
	// before updates are accepted.
	conflicts int
	updates   int
	deletes   []string
	// racing holds IDs that GetByID reports as absent even though they are
	// stored, as if another submission inserted them after the lookup.
	racing map[string]bool
}

func newMockPRStore(prs ...model.PullRequest) *mockPRStore {
	m := &mockPRStore{
		prs:       make(map[string]model.PullRequest),
		deleteErr: make(map[string]error),
		racing:    make(map[string]bool),
	}
	for _, pr := range prs {
		m.prs[pr.ID] = pr.Clone()
		m.order = append(m.order, pr.ID)
	}
	return m
}

func (m *mockPRStore) ListAll(_ context.Context) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.PullRequest, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.prs[id].Clone())
	}
	return out, nil
}

func (m *mockPRStore) ListByChannel(ctx context.Context, channelID string) ([]model.PullRequest, error) {
	all, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(pr model.PullRequest) bool { return pr.ChannelID != channelID }), nil
}

func (m *mockPRStore) GetByID(_ context.Context, id string) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.prs[id]
	if !ok || m.racing[id] {
		return nil, nil
	}
	clone := pr.Clone()
	return &clone, nil
}

func (m *mockPRStore) Insert(_ context.Context, pr model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prs[pr.ID]; ok {
		return model.ErrDuplicatePR
	}
	m.order = append(m.order, pr.ID)
	pr.Version = 1
	m.prs[pr.ID] = pr.Clone()
	return nil
}

func (m *mockPRStore) Upsert(_ context.Context, pr model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prs[pr.ID]; !ok {
		m.order = append(m.order, pr.ID)
	}
	pr.Version++
	m.prs[pr.ID] = pr.Clone()
	return nil
}

func (m *mockPRStore) Update(_ context.Context, pr model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	stored, ok := m.prs[pr.ID]
	if !ok {
		return model.ErrPRNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		stored.Version++
		m.prs[pr.ID] = stored
		return model.ErrVersionConflict
	}
	if stored.Version != pr.Version {
		return model.ErrVersionConflict
	}
	pr.Version++
	m.prs[pr.ID] = pr.Clone()
	return nil
}

func (m *mockPRStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	m.deletes = append(m.deletes, id)
	delete(m.prs, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return nil
}

func (m *mockPRStore) get(id string) (model.PullRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.prs[id]
	return pr, ok
}

type mockSettingsStore struct {
	settings map[string]model.ChannelSettings
	getErr   error
	setErr   error
}

func newMockSettingsStore(settings ...model.ChannelSettings) *mockSettingsStore {
	m := &mockSettingsStore{settings: make(map[string]model.ChannelSettings)}
	for _, s := range settings {
		m.settings[s.ChannelID] = s
	}
	return m
}

func (m *mockSettingsStore) GetSettings(_ context.Context, channelID string) (*model.ChannelSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.settings[channelID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockSettingsStore) SetSettings(_ context.Context, settings model.ChannelSettings) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.settings[settings.ChannelID] = settings
	return nil
}

type postCall struct {
	ChannelID string
	Text      string
}

type updateCall struct {
	ChannelID string
	MessageTS string
	Text      string
}

type mockNotifier struct {
	mu       sync.Mutex
	posts    []postCall
	updates  []updateCall
	names    map[string]string
	postErr  map[string]error // Keyed by channel ID.
	panicOn  map[string]bool  // Channels whose post panics.
	updErr   error
	linkErr  error
	nextTS   int
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{
		names:   make(map[string]string),
		postErr: make(map[string]error),
		panicOn: make(map[string]bool),
	}
}

func (m *mockNotifier) PostMessage(_ context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOn[channelID] {
		panic("notifier exploded")
	}
	if err := m.postErr[channelID]; err != nil {
		return "", err
	}
	m.posts = append(m.posts, postCall{ChannelID: channelID, Text: text})
	m.nextTS++
	return fmt.Sprintf("1700000000.%06d", m.nextTS), nil
}

func (m *mockNotifier) UpdateMessage(_ context.Context, channelID, messageTS, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updErr != nil {
		return m.updErr
	}
	m.updates = append(m.updates, updateCall{ChannelID: channelID, MessageTS: messageTS, Text: text})
	return nil
}

func (m *mockNotifier) Permalink(_ context.Context, channelID, messageTS string) (string, error) {
	if m.linkErr != nil {
		return "", m.linkErr
	}
	return "https://chat.example.com/archives/" + channelID + "/p" + messageTS, nil
}

func (m *mockNotifier) UserName(_ context.Context, userID string) (string, error) {
	name, ok := m.names[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return name, nil
}

func (m *mockNotifier) postsTo(channelID string) []postCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postCall
	for _, p := range m.posts {
		if p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

type mockResolver struct {
	title string
	ok    bool
	err   error
}

func (m *mockResolver) ResolveTitle(_ context.Context, _ string) (string, bool, error) {
	return m.title, m.ok, m.err
}
