package service

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go-chat-im/internal/model"
	"go-chat-im/internal/protocol"
	"go-chat-im/internal/websocket"
	"go-chat-im/pkg/config"
	"go-chat-im/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := config.InitTest(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitLogger("debug", false); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type capturingClient struct {
	mu     sync.Mutex
	userID uint
	frames [][]byte
}

func (c *capturingClient) GetUserID() uint        { return c.userID }
func (c *capturingClient) GetDisplayName() string { return "" }
func (c *capturingClient) Close()                 {}

func (c *capturingClient) QueueBytes(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *capturingClient) received(t *testing.T) []*protocol.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	envs := make([]*protocol.Envelope, 0, len(c.frames))
	for _, frame := range c.frames {
		env, err := protocol.Decode(frame)
		require.NoError(t, err)
		envs = append(envs, env)
	}
	return envs
}

type capturingStore struct {
	mu       sync.Mutex
	err      error
	messages []*model.Message
}

func (s *capturingStore) Create(message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, message)
	return nil
}

func (s *capturingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *capturingStore) first() *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[0]
}

type fakeMembers struct {
	groups map[uint][]uint
	err    error
}

func (m *fakeMembers) IsMember(groupID, userID uint) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, id := range m.groups[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *fakeMembers) MemberIDs(groupID uint) ([]uint, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.groups[groupID], nil
}

type capturingIndexer struct {
	mu       sync.Mutex
	err      error
	messages []*model.Message
}

func (i *capturingIndexer) Index(message *model.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.messages = append(i.messages, message)
	return nil
}

func (i *capturingIndexer) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.messages)
}

func newTestRouter(groups map[uint][]uint) (*ChatRouter, *websocket.Registry, *capturingStore, *capturingIndexer) {
	registry := websocket.NewRegistry()
	store := &capturingStore{}
	indexer := &capturingIndexer{}
	router := NewChatRouter(registry, &fakeMembers{groups: groups}, store, indexer)
	return router, registry, store, indexer
}

func encode(t *testing.T, env *protocol.Envelope) []byte {
	t.Helper()
	data, err := env.Encode()
	require.NoError(t, err)
	return data
}

func TestHandleMessage_MalformedDropped(t *testing.T) {
	router, _, store, _ := newTestRouter(nil)

	router.HandleMessage([]byte("{not json"), 1)
	router.HandleMessage([]byte(`{"content":"missing kind"}`), 1)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, store.count())
}

func TestHandleMessage_UnknownKindDropped(t *testing.T) {
	router, registry, store, _ := newTestRouter(nil)
	recipient := &capturingClient{userID: 2}
	registry.Connect(2, recipient)

	// presence 种类只由服务端生成，客户端伪造的一律丢弃
	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:     protocol.KindPresenceOnline,
		ToUserID: 2,
	}), 1)
	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:     "typing",
		ToUserID: 2,
	}), 1)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, recipient.received(t))
	assert.Zero(t, store.count())
}

func TestRoutePrivate_DeliversPersistsAndIndexes(t *testing.T) {
	router, registry, store, indexer := newTestRouter(nil)
	recipient := &capturingClient{userID: 2}
	registry.Connect(2, recipient)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:       protocol.KindPrivateChat,
		FromUserID: 99, // 伪造的发送者，必须被覆盖
		ToUserID:   2,
		Content:    "hello",
	}), 1)

	envs := recipient.received(t)
	require.Len(t, envs, 1)
	assert.Equal(t, uint(1), envs[0].FromUserID)
	assert.Equal(t, "hello", envs[0].Content)
	assert.Equal(t, protocol.ContentKindText, envs[0].ContentKind)

	assert.Eventually(t, func() bool {
		return store.count() == 1 && indexer.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	saved := store.first()
	assert.NotEmpty(t, saved.MessageID)
	assert.Equal(t, uint(1), saved.SenderID)
	assert.Equal(t, uint(2), saved.ReceiverID)
	assert.Zero(t, saved.GroupID)
	assert.Equal(t, protocol.ContentKindText, saved.ContentKind)
}

func TestRoutePrivate_OfflineRecipientStillPersisted(t *testing.T) {
	router, _, store, _ := newTestRouter(nil)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:     protocol.KindPrivateChat,
		ToUserID: 42,
		Content:  "offline message",
	}), 1)

	assert.Eventually(t, func() bool {
		return store.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRoutePrivate_MissingRecipientDropped(t *testing.T) {
	router, _, store, _ := newTestRouter(nil)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:    protocol.KindPrivateChat,
		Content: "to nobody",
	}), 1)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, store.count())
}

func TestRoutePrivate_PersistsEvenWhenDeliveryFailed(t *testing.T) {
	router, registry, store, _ := newTestRouter(nil)
	// 发送队列已满的接收方
	registry.Connect(2, &fullClient{userID: 2})

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:     protocol.KindPrivateChat,
		ToUserID: 2,
		Content:  "backlogged",
	}), 1)

	assert.Eventually(t, func() bool {
		return store.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

type fullClient struct {
	userID uint
}

func (c *fullClient) GetUserID() uint           { return c.userID }
func (c *fullClient) GetDisplayName() string    { return "" }
func (c *fullClient) QueueBytes(_ []byte) error { return errors.New("client send buffer is full") }
func (c *fullClient) Close()                    {}

func TestRouteGroup_FanOutSkipsSenderAndAbsent(t *testing.T) {
	router, registry, store, _ := newTestRouter(map[uint][]uint{
		7: {1, 2, 3, 5}, // 5不在线
	})
	sender := &capturingClient{userID: 1}
	member2 := &capturingClient{userID: 2}
	member3 := &capturingClient{userID: 3}
	outsider := &capturingClient{userID: 4}
	registry.Connect(1, sender)
	registry.Connect(2, member2)
	registry.Connect(3, member3)
	registry.Connect(4, outsider)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:    protocol.KindGroupChat,
		GroupID: 7,
		Content: "hello group",
	}), 1)

	for _, member := range []*capturingClient{member2, member3} {
		envs := member.received(t)
		require.Len(t, envs, 1)
		assert.Equal(t, protocol.KindGroupChat, envs[0].Kind)
		assert.Equal(t, uint(1), envs[0].FromUserID)
		assert.Equal(t, uint(7), envs[0].GroupID)
	}

	assert.Empty(t, sender.received(t))
	assert.Empty(t, outsider.received(t))

	assert.Eventually(t, func() bool {
		return store.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	saved := store.first()
	assert.Equal(t, uint(7), saved.GroupID)
	assert.Zero(t, saved.ReceiverID)
}

func TestRouteGroup_NonMemberDroppedSilently(t *testing.T) {
	router, registry, store, _ := newTestRouter(map[uint][]uint{
		7: {1, 2},
	})
	member := &capturingClient{userID: 1}
	registry.Connect(1, member)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:    protocol.KindGroupChat,
		GroupID: 7,
		Content: "let me in",
	}), 4)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, member.received(t))
	assert.Zero(t, store.count())
}

func TestRouteGroup_MissingGroupIDDropped(t *testing.T) {
	router, _, store, _ := newTestRouter(nil)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:    protocol.KindGroupChat,
		Content: "nowhere",
	}), 1)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, store.count())
}

func TestRouteGroup_MembershipErrorDropsMessage(t *testing.T) {
	registry := websocket.NewRegistry()
	store := &capturingStore{}
	router := NewChatRouter(registry, &fakeMembers{err: errors.New("db down")}, store, &capturingIndexer{})

	member := &capturingClient{userID: 2}
	registry.Connect(2, member)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:    protocol.KindGroupChat,
		GroupID: 7,
		Content: "hello",
	}), 1)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, member.received(t))
	assert.Zero(t, store.count())
}

func TestPersistAndIndex_FailuresAreIndependent(t *testing.T) {
	registry := websocket.NewRegistry()
	store := &capturingStore{err: errors.New("db down")}
	indexer := &capturingIndexer{}
	router := NewChatRouter(registry, &fakeMembers{}, store, indexer)

	router.HandleMessage(encode(t, &protocol.Envelope{
		Kind:     protocol.KindPrivateChat,
		ToUserID: 2,
		Content:  "index me anyway",
	}), 1)

	// 落库失败不影响索引
	assert.Eventually(t, func() bool {
		return indexer.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
