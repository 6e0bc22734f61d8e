package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/ragchat-be/types"
)

// In-memory repository fakes shared by the service tests.

type memConversations struct {
	mu        sync.Mutex
	items     map[string]*types.Conversation
	createErr error
}

func newMemConversations() *memConversations {
	return &memConversations{items: make(map[string]*types.Conversation)}
}

func (m *memConversations) Create(ctx context.Context, ownerID, title string) (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	now := time.Now()
	conv := &types.Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.items[conv.ID] = conv
	return conv, nil
}

func (m *memConversations) FindOwned(ctx context.Context, id, ownerID string) (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.items[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, types.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *memConversations) List(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var convs []types.Conversation
	for _, conv := range m.items {
		if conv.OwnerID != ownerID {
			continue
		}
		if !before.IsZero() && !conv.CreatedAt.Before(before) {
			continue
		}
		convs = append(convs, *conv)
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].CreatedAt.After(convs[j].CreatedAt) })
	if int64(len(convs)) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (m *memConversations) UpdateTitle(ctx context.Context, id, ownerID, title string) (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.items[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, types.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = time.Now()
	copied := *conv
	return &copied, nil
}

func (m *memConversations) Delete(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.items[id]
	if !ok || conv.OwnerID != ownerID {
		return types.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memConversations) Touch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.items[id]; ok {
		conv.UpdatedAt = time.Now()
	}
	return nil
}

type memMessages struct {
	mu        sync.Mutex
	items     []types.Message
	appendErr error
	// failRole makes Append fail only for this role, so the persist step of
	// a specific message kind can be broken in isolation.
	failRole string
}

func newMemMessages() *memMessages {
	return &memMessages{}
}

func (m *memMessages) Append(ctx context.Context, conversationID, role, content, reference string, citations []types.Citation) (*types.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil && (m.failRole == "" || m.failRole == role) {
		return nil, m.appendErr
	}
	msg := types.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Reference:      reference,
		Citations:      citations,
		CreatedAt:      time.Now(),
	}
	m.items = append(m.items, msg)
	copied := msg
	return &copied, nil
}

func (m *memMessages) ListByConversation(ctx context.Context, conversationID string, after time.Time, limit int64) ([]types.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var msgs []types.Message
	for _, msg := range m.items {
		if msg.ConversationID != conversationID {
			continue
		}
		if !after.IsZero() && !msg.CreatedAt.After(after) {
			continue
		}
		msgs = append(msgs, msg)
	}
	if int64(len(msgs)) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (m *memMessages) DeleteByConversation(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []types.Message
	for _, msg := range m.items {
		if msg.ConversationID != conversationID {
			kept = append(kept, msg)
		}
	}
	m.items = kept
	return nil
}

func (m *memMessages) byConversation(conversationID string) []types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var msgs []types.Message
	for _, msg := range m.items {
		if msg.ConversationID == conversationID {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

type memKbs struct {
	mu    sync.Mutex
	items map[string]*types.KnowledgeBase
}

func newMemKbs() *memKbs {
	return &memKbs{items: make(map[string]*types.KnowledgeBase)}
}

func (m *memKbs) Create(ctx context.Context, ownerID, name, description string, isPublic bool) (*types.KnowledgeBase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	kb := &types.KnowledgeBase{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.items[kb.ID] = kb
	return kb, nil
}

func (m *memKbs) FindOwned(ctx context.Context, id, ownerID string) (*types.KnowledgeBase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.items[id]
	if !ok || kb.OwnerID != ownerID {
		return nil, types.ErrNotFound
	}
	copied := *kb
	return &copied, nil
}

func (m *memKbs) FindReadable(ctx context.Context, id, callerID string) (*types.KnowledgeBase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.items[id]
	if !ok || (kb.OwnerID != callerID && !kb.IsPublic) {
		return nil, types.ErrNotFound
	}
	copied := *kb
	return &copied, nil
}

func (m *memKbs) List(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.KnowledgeBase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kbs []types.KnowledgeBase
	for _, kb := range m.items {
		if kb.OwnerID == ownerID {
			kbs = append(kbs, *kb)
		}
	}
	sort.Slice(kbs, func(i, j int) bool { return kbs[i].CreatedAt.After(kbs[j].CreatedAt) })
	if int64(len(kbs)) > limit {
		kbs = kbs[:limit]
	}
	return kbs, nil
}

func (m *memKbs) Update(ctx context.Context, kb *types.KnowledgeBase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[kb.ID]
	if !ok || existing.OwnerID != kb.OwnerID {
		return types.ErrNotFound
	}
	copied := *kb
	m.items[kb.ID] = &copied
	return nil
}

func (m *memKbs) Delete(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.items[id]
	if !ok || kb.OwnerID != ownerID {
		return types.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type memDocs struct {
	mu    sync.Mutex
	items map[string]*types.Document
}

func newMemDocs() *memDocs {
	return &memDocs{items: make(map[string]*types.Document)}
}

func (m *memDocs) Insert(ctx context.Context, doc *types.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.items[doc.ID] = &copied
	return nil
}

func (m *memDocs) Get(ctx context.Context, docID string) (*types.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.items[docID]
	if !ok {
		return nil, types.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *memDocs) GetInKb(ctx context.Context, kbID, docID string) (*types.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.items[docID]
	if !ok || doc.KbID != kbID {
		return nil, types.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *memDocs) List(ctx context.Context, kbID string, offset, limit int64) ([]types.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []types.Document
	for _, doc := range m.items {
		if doc.KbID == kbID {
			docs = append(docs, *doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	if offset >= int64(len(docs)) {
		return nil, false, nil
	}
	docs = docs[offset:]
	hasNextPage := int64(len(docs)) > limit
	if hasNextPage {
		docs = docs[:limit]
	}
	return docs, hasNextPage, nil
}

func (m *memDocs) ListAll(ctx context.Context) ([]types.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []types.Document
	for _, doc := range m.items {
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (m *memDocs) Update(ctx context.Context, doc *types.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[doc.ID]
	if !ok || existing.KbID != doc.KbID {
		return types.ErrNotFound
	}
	copied := *doc
	m.items[doc.ID] = &copied
	return nil
}

func (m *memDocs) SetEmbeddedAt(ctx context.Context, docID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.items[docID]; ok {
		doc.EmbeddedAt = &at
	}
	return nil
}

func (m *memDocs) Delete(ctx context.Context, kbID, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.items[docID]
	if !ok || doc.KbID != kbID {
		return types.ErrNotFound
	}
	delete(m.items, docID)
	return nil
}

func (m *memDocs) DeleteByKb(ctx context.Context, kbID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, doc := range m.items {
		if doc.KbID == kbID {
			delete(m.items, id)
		}
	}
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	items map[string]*types.User
}

func newMemUsers() *memUsers {
	return &memUsers{items: make(map[string]*types.User)}
}

func (m *memUsers) Upsert(ctx context.Context, claims types.IdentityClaims, provider, initialRole string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.items[claims.Subject]
	if !ok {
		user = &types.User{
			ID:        claims.Subject,
			Role:      initialRole,
			CreatedAt: time.Now(),
		}
		m.items[claims.Subject] = user
	}
	user.DisplayName = claims.Name
	user.Email = claims.Email
	user.Photo = claims.Picture
	user.Provider = provider
	user.UpdatedAt = time.Now()
	copied := *user
	return &copied, nil
}

func (m *memUsers) Get(ctx context.Context, id string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUsers) Paginate(ctx context.Context, offset, limit int64) ([]*types.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*types.User
	for _, user := range m.items {
		copied := *user
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if offset >= int64(len(users)) {
		return nil, false, nil
	}
	users = users[offset:]
	hasNextPage := int64(len(users)) > limit
	if hasNextPage {
		users = users[:limit]
	}
	return users, hasNextPage, nil
}

func (m *memUsers) UpdateRole(ctx context.Context, id, role string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	copied := *user
	return &copied, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []types.AuditLogEntry
}

func newMemAudit() *memAudit {
	return &memAudit{}
}

func (m *memAudit) Insert(ctx context.Context, entry *types.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAudit) List(ctx context.Context, offset, limit int64) ([]types.AuditLogEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append([]types.AuditLogEntry(nil), m.entries...)
	if offset >= int64(len(entries)) {
		return nil, false, nil
	}
	entries = entries[offset:]
	hasNextPage := int64(len(entries)) > limit
	if hasNextPage {
		entries = entries[:limit]
	}
	return entries, hasNextPage, nil
}

// memIndex records vector writes and serves canned search hits.
type memIndex struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	contents  map[string]string
	kbByDoc   map[string]string
	hits      []types.SearchHit
	searchErr error
}

func newMemIndex() *memIndex {
	return &memIndex{
		vectors:  make(map[string][]float32),
		contents: make(map[string]string),
		kbByDoc:  make(map[string]string),
	}
}

func (m *memIndex) UpsertDocumentVector(ctx context.Context, docID, kbID, content string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[docID] = vector
	m.contents[docID] = content
	m.kbByDoc[docID] = kbID
	return nil
}

func (m *memIndex) DeleteDocumentVector(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vectors, docID)
	delete(m.contents, docID)
	delete(m.kbByDoc, docID)
	return nil
}

func (m *memIndex) DeleteKbVectors(ctx context.Context, kbID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for docID, owner := range m.kbByDoc {
		if owner == kbID {
			delete(m.vectors, docID)
			delete(m.contents, docID)
			delete(m.kbByDoc, docID)
		}
	}
	return nil
}

func (m *memIndex) SearchSimilar(ctx context.Context, vector []float32, kbID string, limit int) ([]types.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.hits) > limit {
		return m.hits[:limit], nil
	}
	return m.hits, nil
}

func (m *memIndex) indexedContent(docID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.contents[docID]
	return content, ok
}

// fakeEmbedder returns a fixed-length vector derived from the text.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

// scriptedAI streams its fragments and captures the history it was given.
type scriptedAI struct {
	fragments []string
	err       error
	history   []types.ChatMessage
	opts      types.ChatOptions
}

func (s *scriptedAI) ChatStream(ctx context.Context, messages []types.ChatMessage, opts types.ChatOptions, handler types.StreamHandler) error {
	s.history = messages
	s.opts = opts
	for _, fragment := range s.fragments {
		if err := handler(fragment); err != nil {
			return err
		}
	}
	return s.err
}

// aiFunc adapts a function to the chat backend interface.
type aiFunc func(ctx context.Context, messages []types.ChatMessage, opts types.ChatOptions, handler types.StreamHandler) error

func (f aiFunc) ChatStream(ctx context.Context, messages []types.ChatMessage, opts types.ChatOptions, handler types.StreamHandler) error {
	return f(ctx, messages, opts, handler)
}

// recordSink captures every stream event in order.
type sinkEvent struct {
	kind           string
	content        string
	citations      []types.Citation
	messageID      string
	conversationID string
	message        string
}

type recordSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (r *recordSink) Delta(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "delta", content: content})
	return nil
}

func (r *recordSink) Metadata(citations []types.Citation, usage *types.TokenUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "metadata", citations: citations})
	return nil
}

func (r *recordSink) Done(messageID, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "done", messageID: messageID, conversationID: conversationID})
	return nil
}

func (r *recordSink) Error(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "error", message: message})
	return nil
}

func (r *recordSink) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.kind)
	}
	return kinds
}

func (r *recordSink) streamedText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var text string
	for _, event := range r.events {
		if event.kind == "delta" {
			text += event.content
		}
	}
	return text
}

func (r *recordSink) last() sinkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
